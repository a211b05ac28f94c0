package aggregate

import "strconv"

// Spanish feminine ordinal suffixes ("edición" is feminine), indexed by edition
var editionOrdinals = [...]string{
	1: "1ra", 2: "2da", 3: "3ra", 4: "4ta", 5: "5ta",
	6: "6ta", 7: "7ma", 8: "8va", 9: "9na", 10: "10ma",
	11: "11va", 12: "12va", 13: "13ra", 14: "14ta", 15: "15ta",
	16: "16ta", 17: "17ma", 18: "18va", 19: "19na", 20: "20ma",
	21: "21ra", 22: "22da", 23: "23ra", 24: "24ta", 25: "25ta",
	26: "26ta", 27: "27ma", 28: "28va", 29: "29na", 30: "30ma",
}

// MaxOrdinalEdition is the highest edition rendered as an ordinal
const MaxOrdinalEdition = len(editionOrdinals) - 1

// EditionOrdinal renders an edition number as a localized ordinal. Values
// outside [1, MaxOrdinalEdition] fall back to the plain number.
func EditionOrdinal(edition int) string {
	if edition < 1 || edition > MaxOrdinalEdition {
		return strconv.Itoa(edition)
	}
	return editionOrdinals[edition]
}
