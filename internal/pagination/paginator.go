// Package pagination splits ordered record sets into fixed-size pages.
package pagination

import (
	"errors"
	"strconv"
	"strings"
)

// PostsPerPage is the default page size of every listing.
const PostsPerPage = 10

// Paginator describes a record set of Count items split into pages of PerPage.
type Paginator struct {
	Count   int
	PerPage int
}

// Page is one resolved page of a Paginator.
type Page struct {
	Number   int
	NumPages int
	Count    int
	PerPage  int
}

// New returns a paginator; a non-positive perPage falls back to PostsPerPage.
func New(count, perPage int) Paginator {
	if perPage < 1 {
		perPage = PostsPerPage
	}
	if count < 0 {
		count = 0
	}
	return Paginator{Count: count, PerPage: perPage}
}

// NumPages is ceil(Count/PerPage), but never less than one: an empty set
// still has a single empty page.
func (p Paginator) NumPages() int {
	if p.Count == 0 {
		return 1
	}
	return (p.Count + p.PerPage - 1) / p.PerPage
}

// GetPage resolves a raw page parameter. It never fails: a missing or
// non-integer value yields the first page and an integer outside
// [1, NumPages] yields the last page.
func (p Paginator) GetPage(raw string) Page {
	last := p.NumPages()
	number := 1

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	switch {
	case err == nil:
		number = n
		if number < 1 || number > last {
			number = last
		}
	case errors.Is(err, strconv.ErrRange):
		number = last
	}

	return Page{Number: number, NumPages: last, Count: p.Count, PerPage: p.PerPage}
}

// Offset is the zero-based index of the first record on the page.
func (pg Page) Offset() int {
	return (pg.Number - 1) * pg.PerPage
}

// Limit is the number of records on the page.
func (pg Page) Limit() int {
	left := pg.Count - pg.Offset()
	if left < 0 {
		return 0
	}
	if left > pg.PerPage {
		return pg.PerPage
	}
	return left
}

func (pg Page) HasNext() bool     { return pg.Number < pg.NumPages }
func (pg Page) HasPrevious() bool { return pg.Number > 1 }
func (pg Page) HasOtherPages() bool {
	return pg.HasNext() || pg.HasPrevious()
}

// NextNumber returns the following page number; callers check HasNext first.
func (pg Page) NextNumber() int { return pg.Number + 1 }

// PreviousNumber returns the preceding page number; callers check HasPrevious first.
func (pg Page) PreviousNumber() int { return pg.Number - 1 }

// StartIndex is the 1-based position of the first record, or 0 on an empty set.
func (pg Page) StartIndex() int {
	if pg.Count == 0 {
		return 0
	}
	return pg.Offset() + 1
}

// EndIndex is the 1-based position of the last record on the page.
func (pg Page) EndIndex() int {
	return pg.Offset() + pg.Limit()
}

// PageRange lists every page number, 1 through NumPages.
func (pg Page) PageRange() []int {
	out := make([]int, pg.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// Slice returns the records of items that fall on pg.
func Slice[T any](items []T, pg Page) []T {
	start := pg.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + pg.PerPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
