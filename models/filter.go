package models

import (
	"errors"
	"strings"
)

type SortKey string

const (
	SortNone       SortKey = ""
	SortRatingDesc SortKey = "rating-desc"
	SortTitleAsc   SortKey = "title-asc"
	SortSavesDesc  SortKey = "saves-desc"
)

var ErrInvalidSort = errors.New("invalid sort key")

// ParseSortKey accepts the wire names plus "none".
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case "", "none":
		return SortNone, nil
	case SortRatingDesc:
		return SortRatingDesc, nil
	case SortTitleAsc:
		return SortTitleAsc, nil
	case SortSavesDesc:
		return SortSavesDesc, nil
	}
	return SortNone, ErrInvalidSort
}

// RecipeFilter describes a composed read over the recipe collection.
// Zero values mean "do not filter on this dimension".
type RecipeFilter struct {
	TitleContains string
	MinRating     float64
	Tags          []string
	AuthorID      string
	SortBy        SortKey
	Limit         int64
	Offset        int64
}

// HasTitle, HasMinRating, HasTags and HasAuthor report whether the matching
// predicate takes part in the query at all.
func (f RecipeFilter) HasTitle() bool     { return strings.TrimSpace(f.TitleContains) != "" }
func (f RecipeFilter) HasMinRating() bool { return f.MinRating > 0 }
func (f RecipeFilter) HasTags() bool      { return len(NormalizeTags(f.Tags)) > 0 }
func (f RecipeFilter) HasAuthor() bool    { return f.AuthorID != "" }

// Matches evaluates the conjunction of the specified predicates against r.
// Stores that cannot push the filter down use it directly.
func (f RecipeFilter) Matches(r Recipe) bool {
	if f.HasTitle() {
		needle := strings.ToLower(strings.TrimSpace(f.TitleContains))
		if !strings.Contains(strings.ToLower(r.Title), needle) {
			return false
		}
	}
	if f.HasMinRating() && r.AverageRating < f.MinRating {
		return false
	}
	if f.HasAuthor() && r.AuthorID != f.AuthorID {
		return false
	}
	if f.HasTags() && !intersects(r.Tags, NormalizeTags(f.Tags)) {
		return false
	}
	return true
}

func intersects(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
