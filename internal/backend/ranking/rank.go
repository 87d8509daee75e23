package ranking

import (
	"cmp"
	"slices"

	"github.com/jo-hoe/imageroulette/internal/backend/metadata"
)

// Entry pairs a record id with its decoded metadata
type Entry struct {
	ID   string
	Meta metadata.Meta
}

// Ranked is an entry together with the view count it was ranked by
type Ranked struct {
	Entry
	Views int64
}

// RankVisible orders the visible entries by views descending. Ties are broken
// by id descending so newer records win. Hidden entries are dropped. Ids with
// no entry in views count as zero.
func RankVisible(entries []Entry, views map[string]int64) []Ranked {
	ranked := make([]Ranked, 0, len(entries))
	for _, e := range entries {
		if e.Meta.Hidden {
			continue
		}
		ranked = append(ranked, Ranked{Entry: e, Views: views[e.ID]})
	}

	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		if c := cmp.Compare(b.Views, a.Views); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return ranked
}

// FilterVisible keeps the visible entries in their original order
func FilterVisible(entries []Entry) []Entry {
	visible := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.Meta.Hidden {
			visible = append(visible, e)
		}
	}
	return visible
}

// SortNewestFirst orders entries by id descending
func SortNewestFirst(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return cmp.Compare(b.ID, a.ID)
	})
}
