package aggregate

import (
	"context"
	"sort"
	"sync"
)

// Home is the landing page of a borrower
type Home struct {
	UserName              string                `json:"userName"`
	Loans                 []LoanEntry           `json:"loans"`
	Recommended           []RecommendationEntry `json:"recommended"`
	PopularBooks          []RecommendationEntry `json:"popularBooks"`
	NewBooks              []RecommendationEntry `json:"newBooks"`
	CategoryMostRequested []RecommendationEntry `json:"categoryMostRequested"`

	// Degraded names the blocks that failed and were rendered empty
	Degraded []string `json:"degraded,omitempty"`
}

// HomeBuilder assembles Home from independent blocks
type HomeBuilder struct {
	recommender *Recommender
	loans       *LoanFormatter
}

// NewHomeBuilder creates a home builder
func NewHomeBuilder(recommender *Recommender, loans *LoanFormatter) *HomeBuilder {
	return &HomeBuilder{recommender: recommender, loans: loans}
}

// Build computes every block concurrently. A failing block is rendered empty
// and listed in Degraded; it never affects the others.
func (b *HomeBuilder) Build(ctx context.Context, account, userName string) Home {
	var (
		wg                                   sync.WaitGroup
		loans                                Result[LoanEntry]
		recommended, popular, recent, global Result[RecommendationEntry]
	)

	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	run(func() { loans = b.loans.ActiveLoans(ctx, account) })
	run(func() { recommended = b.recommender.ByUserLoans(ctx, account) })
	run(func() { popular = b.recommender.Popular(ctx) })
	run(func() { recent = b.recommender.RecentlyAdded(ctx) })
	run(func() { global = b.recommender.ByAllLoans(ctx) })
	wg.Wait()

	home := Home{
		UserName:              userName,
		Loans:                 loans.Items,
		Recommended:           recommended.Items,
		PopularBooks:          popular.Items,
		NewBooks:              recent.Items,
		CategoryMostRequested: global.Items,
	}
	for name, degraded := range map[string]bool{
		"loans":                 loans.Failed(),
		"recommended":           recommended.Failed(),
		"popularBooks":          popular.Failed(),
		"newBooks":              recent.Failed(),
		"categoryMostRequested": global.Failed(),
	} {
		if degraded {
			home.Degraded = append(home.Degraded, name)
		}
	}
	sort.Strings(home.Degraded)
	return home
}
