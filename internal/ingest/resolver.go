package ingest

import "strings"

// Header is one source column with its precomputed comparison key.
type Header struct {
	Index int
	Name  string
	Key   string
}

// NewHeaders normalizes a header row once so per-row matching does not
// repeat the work.
func NewHeaders(names []string) []Header {
	headers := make([]Header, len(names))
	for i, name := range names {
		headers[i] = Header{Index: i, Name: name, Key: Normalize(name)}
	}
	return headers
}

// Match is a resolved canonical field: which header supplied which value and
// through which alias.
type Match struct {
	Header Header
	Alias  string
	Value  string
	Exact  bool
}

// Matcher picks the source column for one canonical field. Aliases are in
// preference order.
type Matcher interface {
	Match(aliases []string, headers []Header, row []string) (Match, bool)
}

// FuzzyMatcher tries every alias against every header for an exact key
// match first, then repeats the scan accepting a key that contains the
// other. Only non-empty values are accepted.
//
// A header or alias whose key normalizes to "" (a header of "#" or "--")
// is ignored in both passes, even though "" is a substring of every key:
// such a column is never claimed by a field and ends up in the extras.
type FuzzyMatcher struct{}

func (FuzzyMatcher) Match(aliases []string, headers []Header, row []string) (Match, bool) {
	keys := make([]string, len(aliases))
	for i, a := range aliases {
		keys[i] = Normalize(a)
	}

	exact := func(alias, header string) bool { return alias == header }
	partial := func(alias, header string) bool {
		return strings.Contains(header, alias) || strings.Contains(alias, header)
	}

	for pass, same := range []func(string, string) bool{exact, partial} {
		for i, alias := range aliases {
			if keys[i] == "" {
				continue
			}
			for _, h := range headers {
				if h.Key == "" || !same(keys[i], h.Key) {
					continue
				}
				if h.Index < len(row) && row[h.Index] != "" {
					return Match{Header: h, Alias: alias, Value: row[h.Index], Exact: pass == 0}, true
				}
			}
		}
	}
	return Match{}, false
}
