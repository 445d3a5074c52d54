package persistence

import (
	"math"

	"github.com/dfryer1193/blogapi/blog/domain"
)

// pageOffset returns the index of the first row on page. ok is false when the offset does not
// fit in an int64, which puts the page past any listing.
func pageOffset(page domain.Page, pageSize int) (offset int64, ok bool) {
	if uint64(page) > math.MaxInt64/uint64(pageSize) {
		return 0, false
	}
	return int64(page) * int64(pageSize), true
}
