package aggregate

import "github.com/biblioteca/services/library/internal/db"

// CategoryNode is one enabled category with its enabled descendants
type CategoryNode struct {
	ID       uint           `json:"category_id"`
	Name     string         `json:"name"`
	Icon     string         `json:"icon,omitempty"`
	Children []CategoryNode `json:"children"`
}

// BuildCategoryTree nests a flat category table. Roots are enabled rows
// without a parent; a disabled row hides its whole subtree. Input order is
// kept among siblings. Each row is emitted at most once, so a parent chain
// that loops back on itself is cut instead of recursing forever.
func BuildCategoryTree(rows []db.Category) []CategoryNode {
	children := make(map[uint][]db.Category)
	var roots []db.Category
	for _, row := range rows {
		if !row.Enabled {
			continue
		}
		if row.ParentCategoryID == nil {
			roots = append(roots, row)
			continue
		}
		children[*row.ParentCategoryID] = append(children[*row.ParentCategoryID], row)
	}

	emitted := make(map[uint]bool, len(rows))
	var build func(list []db.Category) []CategoryNode
	build = func(list []db.Category) []CategoryNode {
		nodes := make([]CategoryNode, 0, len(list))
		for _, c := range list {
			if emitted[c.CategoryID] {
				continue
			}
			emitted[c.CategoryID] = true
			nodes = append(nodes, CategoryNode{
				ID:       c.CategoryID,
				Name:     c.Name,
				Icon:     c.Icon,
				Children: build(children[c.CategoryID]),
			})
		}
		return nodes
	}

	return build(roots)
}

// categoryDepths maps every category id to its distance from a root. Rows
// whose parent chain loops or dangles get the depth reached before the break.
func categoryDepths(rows []db.Category) map[uint]int {
	parents := make(map[uint]*uint, len(rows))
	for _, row := range rows {
		parents[row.CategoryID] = row.ParentCategoryID
	}

	depths := make(map[uint]int, len(rows))
	for id := range parents {
		seen := map[uint]bool{id: true}
		depth := 0
		for p := parents[id]; p != nil; p = parents[*p] {
			if seen[*p] {
				break
			}
			if _, known := parents[*p]; !known {
				break
			}
			seen[*p] = true
			depth++
		}
		depths[id] = depth
	}
	return depths
}
