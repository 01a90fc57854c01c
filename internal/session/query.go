package session

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	ParamPark        = "park"
	ParamPage        = "page"
	ParamAttractions = "attractions"
)

// FormatIDs joins ids with commas.
func FormatIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// ParseIDs splits a comma-joined id list. Malformed tokens are dropped and
// returned separately so callers can report them.
func ParseIDs(s string) (ids []int64, skipped []string) {
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		id, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			skipped = append(skipped, tok)
			continue
		}
		ids = append(ids, id)
	}
	return ids, skipped
}

// Encode mirrors s into query parameters. Empty fields are omitted.
func Encode(s State) url.Values {
	q := url.Values{}
	if s.Park != "" {
		q.Set(ParamPark, s.Park)
	}
	if s.Page != "" {
		q.Set(ParamPage, string(s.Page))
	}
	if len(s.Attractions) > 0 {
		q.Set(ParamAttractions, FormatIDs(s.Attractions))
	}
	return q
}

// Decode overlays query parameters on base. A park in the URL that differs
// from base selects it and drops base's attractions, taking the page from the
// URL or defaulting to attraction selection. Attraction ids replace base's when
// at least one parses; ids past MaxAttractions are dropped and reported with
// the malformed tokens. The result is normalized.
func Decode(q url.Values, base State) (State, []string) {
	s := base.clone()

	if park := q.Get(ParamPark); park != "" && park != s.Park {
		s.Park = park
		s.Attractions = nil
		if page := Page(q.Get(ParamPage)); page.Valid() {
			s.Page = page
		} else {
			s.Page = PageAttractionSelection
		}
	} else if page := Page(q.Get(ParamPage)); page.Valid() {
		s.Page = page
	}

	var skipped []string
	if raw := q.Get(ParamAttractions); raw != "" {
		var ids []int64
		ids, skipped = ParseIDs(raw)
		if len(ids) > MaxAttractions {
			for _, id := range ids[MaxAttractions:] {
				skipped = append(skipped, strconv.FormatInt(id, 10))
			}
			ids = ids[:MaxAttractions]
		}
		if len(ids) > 0 {
			s.Attractions = ids
		}
	}

	return s.Normalize(), skipped
}

// HasState reports whether q carries any wizard parameters.
func HasState(q url.Values) bool {
	return q.Has(ParamPark) || q.Has(ParamPage) || q.Has(ParamAttractions)
}
