package explorecheck

import (
	"fmt"

	"github.com/okian/buzz/internal/domain/types"
)

// verifyPage checks one category page on its own. Ranks may skip positions
// when a ranked tweet could not be hydrated, so only their bounds and order
// are checked.
func verifyPage(p types.CategoryPage, page, limit int) []string {
	var out []string
	where := fmt.Sprintf("%s page %d", p.CategoryID, page)

	if len(p.Tweets) > limit {
		out = append(out, fmt.Sprintf("%s: %d tweets exceed limit %d", where, len(p.Tweets), limit))
	}

	lo, hi := (page-1)*limit, page*limit
	seen := make(map[string]struct{}, len(p.Tweets))
	for i, e := range p.Tweets {
		if e.Rank <= lo || e.Rank > hi {
			out = append(out, fmt.Sprintf("%s: rank %d outside (%d, %d]", where, e.Rank, lo, hi))
		}
		if _, dup := seen[e.Tweet.ID]; dup {
			out = append(out, fmt.Sprintf("%s: tweet %s listed twice", where, e.Tweet.ID))
		}
		seen[e.Tweet.ID] = struct{}{}

		if i == 0 {
			continue
		}
		prev := p.Tweets[i-1]
		if e.Score > prev.Score {
			out = append(out, fmt.Sprintf("%s: entry %d scores %.4f above entry %d (%.4f)", where, i, e.Score, i-1, prev.Score))
		}
		if e.Rank <= prev.Rank {
			out = append(out, fmt.Sprintf("%s: rank %d does not follow rank %d", where, e.Rank, prev.Rank))
		}
	}
	return out
}

// verifyWalk checks consecutive pages of one category against each other.
func verifyWalk(pages []types.CategoryPage) []string {
	var out []string
	seen := make(map[string]int)
	for n, p := range pages {
		for _, e := range p.Tweets {
			if first, dup := seen[e.Tweet.ID]; dup && first != n {
				out = append(out, fmt.Sprintf("%s: tweet %s on pages %d and %d", p.CategoryID, e.Tweet.ID, first+1, n+1))
			}
			seen[e.Tweet.ID] = n
		}
		if n == 0 {
			continue
		}

		prev := pages[n-1]
		if prev.HasMore && len(p.Tweets) == 0 {
			out = append(out, fmt.Sprintf("%s: page %d has_more but page %d is empty", p.CategoryID, n, n+1))
		}
		if len(prev.Tweets) > 0 && len(p.Tweets) > 0 {
			last, first := prev.Tweets[len(prev.Tweets)-1], p.Tweets[0]
			if first.Score > last.Score {
				out = append(out, fmt.Sprintf("%s: page %d opens at %.4f above page %d close %.4f", p.CategoryID, n+1, first.Score, n, last.Score))
			}
		}
	}
	return out
}

// verifyFeed checks that each section is distinct, non-empty and ordered.
func verifyFeed(f types.Feed) []string {
	var out []string
	seen := make(map[string]struct{}, len(f.Sections))
	for _, s := range f.Sections {
		if _, dup := seen[s.CategoryID]; dup {
			out = append(out, fmt.Sprintf("feed: category %s appears twice", s.CategoryID))
		}
		seen[s.CategoryID] = struct{}{}

		if len(s.Tweets) == 0 {
			out = append(out, fmt.Sprintf("feed: category %s has an empty section", s.CategoryID))
		}
		for i := 1; i < len(s.Tweets); i++ {
			if s.Tweets[i].Score > s.Tweets[i-1].Score {
				out = append(out, fmt.Sprintf("feed: category %s entry %d out of order", s.CategoryID, i))
			}
		}
	}
	return out
}
