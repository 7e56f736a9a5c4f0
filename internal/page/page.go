// Package page provides a live document model for the interception engine.
// A Document is parsed from real HTML, remains mutable afterwards, and
// dispatches focus and change events synchronously, which makes it the
// engine's event loop. All DOM access is expected to happen on a single
// goroutine, the same model a content script gets from the host page.
package page

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Element is a single DOM element. Attribute reads never fail: a missing
// attribute is the empty string, matching how an uncontrolled page looks
// to a classifier that cannot assume any markup shape.
type Element struct {
	doc      *Document
	tag      string
	attrs    map[string]string
	value    string
	text     []string
	parent   *Element
	children []*Element

	clickSubs []func()
}

// Tag returns the lowercase tag name.
func (e *Element) Tag() string { return e.tag }

// Attr returns the value of the named attribute, or "" if absent.
func (e *Element) Attr(name string) string {
	return e.attrs[strings.ToLower(name)]
}

// HasAttr reports whether the attribute is present, even if empty.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.attrs[strings.ToLower(name)]
	return ok
}

// SetAttr sets an attribute and notifies change subscribers.
func (e *Element) SetAttr(name, value string) {
	e.attrs[strings.ToLower(name)] = value
	if e.doc != nil {
		e.doc.notifyChange()
	}
}

// Value returns the element's current value (form controls).
func (e *Element) Value() string { return e.value }

// SetValue sets the element's value. Unlike attributes this mirrors the
// DOM value property, not the value attribute.
func (e *Element) SetValue(v string) { e.value = v }

// Text returns the concatenated text content of the element and its
// descendants, whitespace-collapsed.
func (e *Element) Text() string {
	var parts []string
	e.collectText(&parts)
	return strings.Join(parts, " ")
}

func (e *Element) collectText(parts *[]string) {
	for _, t := range e.text {
		if s := strings.TrimSpace(t); s != "" {
			*parts = append(*parts, s)
		}
	}
	for _, c := range e.children {
		c.collectText(parts)
	}
}

// AppendText adds a text chunk to the element.
func (e *Element) AppendText(t string) {
	e.text = append(e.text, t)
}

// Children returns the element's direct children.
func (e *Element) Children() []*Element { return e.children }

// AppendChild attaches child (and its subtree) to e and notifies
// change subscribers.
func (e *Element) AppendChild(child *Element) {
	child.parent = e
	child.adopt(e.doc)
	e.children = append(e.children, child)
	if e.doc != nil {
		e.doc.notifyChange()
	}
}

func (e *Element) adopt(doc *Document) {
	e.doc = doc
	for _, c := range e.children {
		c.adopt(doc)
	}
}

// Remove detaches the element from its parent and notifies change
// subscribers. Removing an already-detached element is a no-op.
func (e *Element) Remove() {
	p := e.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == e {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	e.parent = nil
	if e.doc != nil {
		e.doc.notifyChange()
	}
}

// HasClass reports whether the class attribute contains name.
func (e *Element) HasClass(name string) bool {
	for _, c := range strings.Fields(e.Attr("class")) {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass appends a class token if not already present.
func (e *Element) AddClass(name string) {
	if e.HasClass(name) {
		return
	}
	cur := e.Attr("class")
	if cur == "" {
		e.SetAttr("class", name)
		return
	}
	e.SetAttr("class", cur+" "+name)
}

// RemoveClass strips a class token.
func (e *Element) RemoveClass(name string) {
	var kept []string
	for _, c := range strings.Fields(e.Attr("class")) {
		if c != name {
			kept = append(kept, c)
		}
	}
	e.SetAttr("class", strings.Join(kept, " "))
}

// Document is the engine's view of the host page.
type Document struct {
	hostname string
	root     *Element
	body     *Element
	head     *Element

	focused       *Element
	focusSubs     []func(*Element)
	changeSubs    []func()
	dispatching   bool
	pendingChange bool

	frameQueue []func()
	navTarget  string
}

// Parse builds a Document from HTML. hostname is the page's location
// host (the model has no URL bar of its own). Parsing is lenient the
// way browsers are; Parse only fails on reader errors.
func Parse(r io.Reader, hostname string) (*Document, error) {
	node, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	doc := &Document{hostname: hostname}
	doc.root = doc.convert(node, nil)
	doc.body = doc.findFirst(doc.root, "body")
	doc.head = doc.findFirst(doc.root, "head")
	if doc.body == nil {
		doc.body = doc.root
	}
	return doc, nil
}

// ParseString is Parse over an in-memory HTML string.
func ParseString(src, hostname string) (*Document, error) {
	return Parse(strings.NewReader(src), hostname)
}

func (d *Document) convert(n *html.Node, parent *Element) *Element {
	el := &Element{doc: d, parent: parent, attrs: map[string]string{}}
	switch n.Type {
	case html.ElementNode:
		el.tag = strings.ToLower(n.Data)
		for _, a := range n.Attr {
			el.attrs[strings.ToLower(a.Key)] = a.Val
		}
		el.value = el.attrs["value"]
	case html.DocumentNode:
		el.tag = "#document"
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			el.text = append(el.text, c.Data)
		case html.ElementNode:
			el.children = append(el.children, d.convert(c, el))
		case html.DocumentNode:
			// not nested in practice
		}
	}
	return el
}

func (d *Document) findFirst(e *Element, tag string) *Element {
	if e.tag == tag {
		return e
	}
	for _, c := range e.children {
		if found := d.findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// Hostname returns the page's location host.
func (d *Document) Hostname() string { return d.hostname }

// Body returns the document body (never nil).
func (d *Document) Body() *Element { return d.body }

// CreateElement builds a detached element owned by this document.
func (d *Document) CreateElement(tag string, attrs map[string]string) *Element {
	el := &Element{doc: d, tag: strings.ToLower(tag), attrs: map[string]string{}}
	for k, v := range attrs {
		el.attrs[strings.ToLower(k)] = v
	}
	return el
}

// Walk visits every element in document order.
func (d *Document) Walk(visit func(*Element)) {
	var walk func(*Element)
	walk = func(e *Element) {
		visit(e)
		for _, c := range e.children {
			walk(c)
		}
	}
	walk(d.root)
}

// Inputs returns every form control on the page, in document order.
func (d *Document) Inputs() []*Element {
	var out []*Element
	d.Walk(func(e *Element) {
		switch e.tag {
		case "input", "select", "textarea":
			out = append(out, e)
		}
	})
	return out
}

// ElementByID returns the first element with the given id, or nil.
func (d *Document) ElementByID(id string) *Element {
	var found *Element
	d.Walk(func(e *Element) {
		if found == nil && e.Attr("id") == id {
			found = e
		}
	})
	return found
}

// ElementWithAttr returns the first element carrying the named
// attribute, or nil. Used for out-of-band marker discovery.
func (d *Document) ElementWithAttr(name string) *Element {
	var found *Element
	d.Walk(func(e *Element) {
		if found == nil && e.HasAttr(name) {
			found = e
		}
	})
	return found
}

// MetaContent returns the content of a <meta property=...> or
// <meta name=...> tag, or "" if absent.
func (d *Document) MetaContent(key string) string {
	var content string
	d.Walk(func(e *Element) {
		if content != "" || e.tag != "meta" {
			return
		}
		if e.Attr("property") == key || e.Attr("name") == key {
			content = e.Attr("content")
		}
	})
	return content
}

// Focused returns the currently focused element, or nil.
func (d *Document) Focused() *Element { return d.focused }

// OnFocus subscribes to focus events. Handlers run synchronously inside
// Focus, so they observe the DOM exactly as it was at focus time.
func (d *Document) OnFocus(fn func(*Element)) {
	d.focusSubs = append(d.focusSubs, fn)
}

// Focus moves focus to el and dispatches focus handlers. Queued frame
// callbacks are flushed once dispatch completes.
func (d *Document) Focus(el *Element) {
	d.focused = el
	d.dispatching = true
	for _, fn := range d.focusSubs {
		fn(el)
	}
	d.dispatching = false
	d.drainPendingChange()
	d.FlushFrames()
}

// Blur removes focus from el if it currently holds it.
func (d *Document) Blur(el *Element) {
	if d.focused == el {
		d.focused = nil
	}
}

// OnChange subscribes to DOM change notifications (attribute writes,
// insertions, removals anywhere in the tree). This is the engine's
// mutation-observer seam: observers re-check whatever they watch on
// every batch rather than diffing individual records.
func (d *Document) OnChange(fn func()) {
	d.changeSubs = append(d.changeSubs, fn)
}

func (d *Document) notifyChange() {
	if d.dispatching {
		// Mutations performed inside an event handler are coalesced
		// into one notification delivered after the current dispatch
		// completes, never dropped.
		d.pendingChange = true
		return
	}
	d.dispatching = true
	for {
		for _, fn := range d.changeSubs {
			fn()
		}
		if !d.pendingChange {
			break
		}
		// A subscriber mutated the tree: one more coalesced pass.
		d.pendingChange = false
	}
	d.dispatching = false
}

func (d *Document) drainPendingChange() {
	if !d.pendingChange {
		return
	}
	d.pendingChange = false
	d.notifyChange()
}

// RequestFrame queues fn for the next frame. The model has no renderer,
// so frames are flushed after each event dispatch or explicitly via
// FlushFrames.
func (d *Document) RequestFrame(fn func()) {
	d.frameQueue = append(d.frameQueue, fn)
}

// FlushFrames runs and drains all queued frame callbacks.
func (d *Document) FlushFrames() {
	for len(d.frameQueue) > 0 {
		q := d.frameQueue
		d.frameQueue = nil
		for _, fn := range q {
			fn()
		}
	}
}

// Navigate records a navigation request. The model does not actually
// load anything; callers inspect NavigatedTo.
func (d *Document) Navigate(url string) {
	d.navTarget = url
}

// NavigatedTo returns the last navigation target, or "".
func (d *Document) NavigatedTo() string { return d.navTarget }
