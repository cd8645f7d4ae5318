package viewmodel

import (
	"net/url"
	"strconv"
)

// Pagination contains pagination metadata for list views.
type Pagination struct {
	Limit      int
	Offset     int
	HasPrev    bool
	HasNext    bool
	StartIndex int
	EndIndex   int
	TotalCount int
	PrevURL    string
	NextURL    string
}

// Paginate derives display ranges and neighbour links for a limit/offset page
// holding shown rows out of total.
func Paginate(basePath string, limit, offset, shown, total int) Pagination {
	p := Pagination{Limit: limit, Offset: offset, TotalCount: total}
	if shown > 0 {
		p.StartIndex = offset + 1
		p.EndIndex = offset + shown
	}
	p.HasPrev = offset > 0
	p.HasNext = offset+shown < total
	if p.HasPrev {
		prev := offset - limit
		if prev < 0 {
			prev = 0
		}
		p.PrevURL = pageURL(basePath, limit, prev)
	}
	if p.HasNext {
		p.NextURL = pageURL(basePath, limit, offset+limit)
	}
	return p
}

func pageURL(basePath string, limit, offset int) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return basePath + "?" + q.Encode()
}
