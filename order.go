package tattle

import (
	"cmp"
	"slices"
)

// CompareArticles defines the total order of the feed:
//
//  1. Articles with an explicit Order sort ascending by it (position 0 is
//     the top of the feed).
//  2. An article with an explicit Order sorts before one without.
//  3. Uncurated articles sort by recency, newest first.
//
// The asymmetry between rules 1 and 3 is deliberate: new content surfaces
// at the top until an editor curates the feed. Ties fall through to the id
// so any two distinct articles compare unequal.
func CompareArticles(a, b Article) int {
	switch {
	case a.Order != nil && b.Order != nil:
		if n := cmp.Compare(*a.Order, *b.Order); n != 0 {
			return n
		}
	case a.Order != nil:
		return -1
	case b.Order != nil:
		return 1
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	}
	return cmp.Compare(b.ID, a.ID)
}

// SortArticles sorts the canonical collection in place by CompareArticles.
func SortArticles(articles []Article) {
	slices.SortStableFunc(articles, CompareArticles)
}

// ReorderPlan diffs a desired sequence against the current one and returns
// the ids to persist, in order. It returns nil when the sequence is
// unchanged so no backend write is issued for a no-op drag.
func ReorderPlan(current, desired []Article) []string {
	same := len(current) == len(desired)
	ids := make([]string, len(desired))
	for i, a := range desired {
		ids[i] = a.ID
		if same && current[i].ID != a.ID {
			same = false
		}
	}
	if same {
		return nil
	}
	return ids
}
