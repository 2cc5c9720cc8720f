package rules

import "sort"

// SearchTerms returns identifiers at least one of which must occur in a file
// for any of the rules to match it. The boolean is false when some target
// has no name, in which case every file must be parsed.
func SearchTerms(rs []Rule) ([]string, bool) {
	seen := make(map[string]bool)
	for _, r := range rs {
		for _, t := range r.Targets {
			if t.Kind == KindUnknown {
				continue
			}
			if t.Name == "" {
				return nil, false
			}
			seen[t.Name] = true
		}
	}
	terms := make([]string, 0, len(seen))
	for term := range seen {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms, true
}
