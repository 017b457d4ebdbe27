package pagination

import (
	"math"
	"net/http"
	"strconv"
)

const (
	DefaultPerPage = 5
	MaxPerPage     = 50
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// Normalize clamps page and per-page values: a page below 1 becomes 1, a
// non-positive size becomes DefaultPerPage and sizes above MaxPerPage are
// capped. The offset saturates at math.MaxInt for pages too far out to
// address, so such a page is simply empty.
func Normalize(page, perPage int) Params {
	if page < 1 {
		page = 1
	}
	switch {
	case perPage <= 0:
		perPage = DefaultPerPage
	case perPage > MaxPerPage:
		perPage = MaxPerPage
	}
	offset := math.MaxInt
	if page-1 <= math.MaxInt/perPage {
		offset = (page - 1) * perPage
	}
	return Params{Page: page, PerPage: perPage, Offset: offset}
}

// FromRequest extracts pagination parameters from an HTTP request. The page
// size is read from "limit", falling back to "per_page". Values that are not
// integers are treated as absent.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	page := atoiOr(q.Get("page"), 1)

	size := q.Get("limit")
	if size == "" {
		size = q.Get("per_page")
	}
	return Normalize(page, atoiOr(size, DefaultPerPage))
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}
