package page

import "strings"

// simpleSelector is one segment of a descendant selector chain:
// an optional tag, an optional #id, and any number of .class tokens.
type simpleSelector struct {
	tag     string
	id      string
	classes []string
}

func (s simpleSelector) matches(e *Element) bool {
	if e.tag == "" || strings.HasPrefix(e.tag, "#") {
		return false
	}
	if s.tag != "" && e.tag != s.tag {
		return false
	}
	if s.id != "" && e.Attr("id") != s.id {
		return false
	}
	for _, c := range s.classes {
		if !e.HasClass(c) {
			return false
		}
	}
	return true
}

func parseSelector(selector string) []simpleSelector {
	var chain []simpleSelector
	for _, part := range strings.Fields(selector) {
		var s simpleSelector
		for part != "" {
			idx := strings.IndexAny(part[1:], "#.")
			var token, rest string
			if idx == -1 {
				token, rest = part, ""
			} else {
				token, rest = part[:idx+1], part[idx+1:]
			}
			switch token[0] {
			case '#':
				s.id = token[1:]
			case '.':
				s.classes = append(s.classes, token[1:])
			default:
				s.tag = strings.ToLower(token)
			}
			part = rest
		}
		chain = append(chain, s)
	}
	return chain
}

// Query returns elements matching a descendant selector chain
// ("div#price .amount"). Only tag, #id and .class segments are
// supported; that covers every selector in the site table, and an
// unsupported selector simply matches nothing.
func (d *Document) Query(selector string) []*Element {
	chain := parseSelector(selector)
	if len(chain) == 0 {
		return nil
	}
	var out []*Element
	d.Walk(func(e *Element) {
		if matchChain(e, chain) {
			out = append(out, e)
		}
	})
	return out
}

// QueryText returns the text content of the first match, or "".
func (d *Document) QueryText(selector string) string {
	els := d.Query(selector)
	if len(els) == 0 {
		return ""
	}
	return els[0].Text()
}

// matchChain checks the last segment against e, then walks ancestors
// for the remaining segments, the way descendant combinators bind.
func matchChain(e *Element, chain []simpleSelector) bool {
	if !chain[len(chain)-1].matches(e) {
		return false
	}
	rest := chain[:len(chain)-1]
	anc := e.parent
	for i := len(rest) - 1; i >= 0; i-- {
		for anc != nil && !rest[i].matches(anc) {
			anc = anc.parent
		}
		if anc == nil {
			return false
		}
		anc = anc.parent
	}
	return true
}
