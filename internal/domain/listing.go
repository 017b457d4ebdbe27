package domain

// Sort keys accepted when listing reviews.
const (
	SortNewest     = "newest"
	SortOldest     = "oldest"
	SortRatingDesc = "rating_desc"
	SortRatingAsc  = "rating_asc"
)

// NormalizeSort maps an arbitrary sort parameter onto a known key. Unknown
// and empty values fall back to newest first.
func NormalizeSort(sort string) string {
	switch sort {
	case SortNewest, SortOldest, SortRatingDesc, SortRatingAsc:
		return sort
	default:
		return SortNewest
	}
}
