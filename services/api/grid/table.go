package grid

import (
	"sort"
	"strings"

	"github.com/02loveslollipop/perftest-dashboard/services/api/timeslot"
)

const MaxLimit = 500

// Query holds the table filters applied to each jm group.
type Query struct {
	Search string `json:"search"`
	SortBy string `json:"sort"`
	Desc   bool   `json:"desc"`
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
}

// Page is one visible slice of a group.
type Page struct {
	Tags       []timeslot.InputTag `json:"tags"`
	Index      []int               `json:"-"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	TotalPages int                 `json:"total_pages"`
}

// Normalize clamps paging values and lowercases the sort column.
func (q Query) Normalize() Query {
	q.Search = strings.TrimSpace(q.Search)
	q.SortBy = strings.ToLower(strings.TrimSpace(q.SortBy))
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit < 0 {
		q.Limit = 0
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

func matches(tag timeslot.InputTag, needle string) bool {
	if needle == "" {
		return true
	}
	for _, field := range []string{tag.TagNo, tag.Description, tag.UnitName} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func sortKey(tag timeslot.InputTag, column string) (string, bool) {
	switch column {
	case "tag_no":
		return tag.TagNo, true
	case "description":
		return tag.Description, true
	case "unit_name":
		return tag.UnitName, true
	}
	return "", false
}

// Apply filters, sorts and pages tags. An unknown or empty sort column keeps
// the source order.
func Apply(tags []timeslot.InputTag, q Query) Page {
	q = q.Normalize()
	needle := strings.ToLower(q.Search)

	// positions into tags, so callers can map rows back to their source
	filtered := make([]int, 0, len(tags))
	for i, tag := range tags {
		if matches(tag, needle) {
			filtered = append(filtered, i)
		}
	}

	if _, ok := sortKey(timeslot.InputTag{}, q.SortBy); ok {
		sort.SliceStable(filtered, func(i, j int) bool {
			a, _ := sortKey(tags[filtered[i]], q.SortBy)
			b, _ := sortKey(tags[filtered[j]], q.SortBy)
			a, b = strings.ToLower(a), strings.ToLower(b)
			if q.Desc {
				return a > b
			}
			return a < b
		})
	}

	page := Page{Total: len(filtered), Page: q.Page, Limit: q.Limit, TotalPages: 1}
	if q.Limit == 0 {
		page.setRows(tags, filtered)
		return page
	}

	page.TotalPages = (len(filtered) + q.Limit - 1) / q.Limit
	if page.TotalPages == 0 {
		page.TotalPages = 1
	}
	start := (q.Page - 1) * q.Limit
	if start >= len(filtered) {
		page.setRows(tags, nil)
		return page
	}
	end := start + q.Limit
	if end > len(filtered) {
		end = len(filtered)
	}
	page.setRows(tags, filtered[start:end])
	return page
}

func (p *Page) setRows(tags []timeslot.InputTag, index []int) {
	p.Tags = make([]timeslot.InputTag, 0, len(index))
	p.Index = make([]int, 0, len(index))
	for _, i := range index {
		p.Tags = append(p.Tags, tags[i])
		p.Index = append(p.Index, i)
	}
}

// Visible applies q to every group of the grouping.
func Visible(grouping timeslot.Grouping, q Query) (map[int][]timeslot.InputTag, map[int]Page) {
	tags := make(map[int][]timeslot.InputTag, len(grouping.Groups))
	pages := make(map[int]Page, len(grouping.Groups))
	for jm, group := range grouping.Groups {
		p := Apply(group, q)
		tags[jm] = p.Tags
		pages[jm] = p
	}
	return tags, pages
}
