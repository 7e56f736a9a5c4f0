package classifier

import "regexp"

// patternGroup is one category of textual card-field signals. The
// classifier ORs across groups; groups exist so packs can extend a
// single category without touching the others.
type patternGroup struct {
	name     string
	patterns []*regexp.Regexp
}

func defaultGroups() []patternGroup {
	return []patternGroup{
		{
			name: "card-number",
			patterns: compilePatterns([]string{
				`card[\s_-]*number`,
				`card[\s_-]*no\b`,
				`cc[\s_-]*num`,
				`ccnumber`,
				`credit[\s_-]*card`,
				`debit[\s_-]*card`,
				`\bpan\b`,
			}),
		},
		{
			name: "cvv",
			patterns: compilePatterns([]string{
				`\bcvv\b`,
				`\bcvc\b`,
				`\bcsc\b`,
				`\bcvn\b`,
				`security[\s_-]*code`,
				`card[\s_-]*verification`,
			}),
		},
		{
			name: "expiry",
			patterns: compilePatterns([]string{
				`expir`,
				`exp[\s_-]*date`,
				`exp[\s_-]*month`,
				`exp[\s_-]*year`,
				`\bmm[\s/]*yy`,
				`valid[\s_-]*thru`,
			}),
		},
	}
}

// extendGroup appends compiled patterns to a named group on this
// classifier, creating the group if it does not exist. Built-in
// patterns are never removed.
func (c *Classifier) extendGroup(name string, patterns []*regexp.Regexp) {
	for i := range c.groups {
		if c.groups[i].name == name {
			c.groups[i].patterns = append(c.groups[i].patterns, patterns...)
			return
		}
	}
	c.groups = append(c.groups, patternGroup{name: name, patterns: patterns})
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}
