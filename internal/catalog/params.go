package catalog

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// parseListingParams reads the paging mode from a query string. Precedence is
// all, then cursor, then page. explicit is false when the query carries no paging
// parameter at all.
func parseListingParams(query url.Values) (p Params, explicit bool) {
	p.PageSize = ClampPageSize(atoiOr(query.Get("pageSize"), MaxPageSize))
	p.Show = lo.Compact(lo.Map(strings.Split(query.Get("show"), ","), func(field string, _ int) string {
		return strings.TrimSpace(field)
	}))

	switch {
	case parseBool(query.Get("all")):
		p.Mode = ModeAll
	case query.Has("cursor") || query.Has("cursorMark"):
		p.Mode = ModeCursor
		p.CursorMark = lo.CoalesceOrEmpty(strings.TrimSpace(query.Get("cursor")), strings.TrimSpace(query.Get("cursorMark")))
	default:
		p.Mode = ModePage
		p.Page = atoiOr(query.Get("page"), 1)
		if p.Page < 1 {
			p.Page = 1
		}
	}

	explicit = p.Mode != ModePage || query.Has("page") || query.Has("pageSize")
	return p, explicit
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	}
	return false
}
