// Package liststate translates between URL query strings and list table
// state. The URL is the single source of truth for paging, sorting, and
// filtering; the decoded struct is a derived view rebuilt on every request.
package liststate

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/harborline/shopfront/model"
)

// Reserved query keys that carry table state rather than filters.
const (
	keyPage     = "page"
	keyPageSize = "pageSize"
	keySortBy   = "sortBy"
)

// DefaultPageSize applies when the query carries no pageSize.
const DefaultPageSize = 20

// descMarker prefixes a sortBy value to request descending order.
const descMarker = "!"

// Codec decodes and encodes list state for one resource. Only filter keys
// matching the resource's flattened property names survive decoding; anything
// else in the query is dropped.
type Codec struct {
	known map[string]model.PropertySpec
}

// NewCodec creates a codec over the resource's flattened properties.
func NewCodec(properties map[string]model.PropertySpec) *Codec {
	return &Codec{known: properties}
}

// Decode parses URL query values into a ListQueryState. The page parameter is
// 1-indexed externally and 0-indexed in the result; absent or malformed
// values fall back to the first page. Absent sortBy yields an empty Sort
// slice, the neutral no-sort state.
func (c *Codec) Decode(values url.Values) model.ListQueryState {
	state := model.ListQueryState{
		PageSize: DefaultPageSize,
		Filters:  map[string]string{},
	}

	if raw := values.Get(keyPage); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil && page > 1 {
			state.PageIndex = page - 1
		}
	}
	if raw := values.Get(keyPageSize); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			state.PageSize = size
		}
	}

	for _, raw := range values[keySortBy] {
		if raw == "" || raw == descMarker {
			continue
		}
		entry := model.SortEntry{ID: raw}
		if strings.HasPrefix(raw, descMarker) {
			entry.ID = strings.TrimPrefix(raw, descMarker)
			entry.Desc = true
		}
		state.Sort = append(state.Sort, entry)
	}

	for key, vals := range values {
		if key == keyPage || key == keyPageSize || key == keySortBy {
			continue
		}
		if _, ok := c.known[key]; !ok {
			continue
		}
		if len(vals) > 0 && vals[0] != "" {
			state.Filters[key] = vals[0]
		}
	}

	return state
}

// Encode renders a ListQueryState back into query values. Defaults are
// omitted so that an untouched table round-trips to an empty query.
func (c *Codec) Encode(state model.ListQueryState) url.Values {
	values := url.Values{}

	if state.PageIndex > 0 {
		values.Set(keyPage, strconv.Itoa(state.PageIndex+1))
	}
	if state.PageSize > 0 && state.PageSize != DefaultPageSize {
		values.Set(keyPageSize, strconv.Itoa(state.PageSize))
	}
	for _, entry := range state.Sort {
		v := entry.ID
		if entry.Desc {
			v = descMarker + v
		}
		values.Add(keySortBy, v)
	}
	for key, val := range state.Filters {
		if _, ok := c.known[key]; ok && val != "" {
			values.Set(key, val)
		}
	}

	return values
}

// Apply returns a copy of the query with one parameter changed. An empty
// value deletes the key. A value equal to the current one leaves the query
// untouched. When the value differs and resetPage is set, an existing page
// parameter is removed so the view returns to the first page.
func Apply(query url.Values, key, value string, resetPage bool) url.Values {
	next := url.Values{}
	for k, vals := range query {
		next[k] = append([]string(nil), vals...)
	}

	if value == "" {
		next.Del(key)
		return next
	}
	if query.Get(key) == value {
		return next
	}

	next.Set(key, value)
	if resetPage && query.Has(keyPage) {
		next.Del(keyPage)
	}
	return next
}
