package page

// Click handling lives here rather than in page.go to keep the tree
// model and the event surface readable separately. The model does not
// bubble: a click fires only the handlers attached to the clicked
// element, which is all the engine's own modal needs.

// OnClick attaches a click handler to the element. Handlers run
// synchronously inside Click, in attachment order.
func (e *Element) OnClick(fn func()) {
	e.clickSubs = append(e.clickSubs, fn)
}

// Click dispatches a click on the element. Checkbox inputs toggle
// their checked state before handlers run, matching DOM semantics.
func (e *Element) Click() {
	if e.tag == "input" && e.Attr("type") == "checkbox" {
		e.setCheckedQuiet(!e.Checked())
	}
	for _, fn := range e.clickSubs {
		fn()
	}
	if e.doc != nil {
		e.doc.FlushFrames()
	}
}

// Checked reports a checkbox's checked state.
func (e *Element) Checked() bool {
	return e.HasAttr("checked")
}

// SetChecked sets a checkbox's checked state.
func (e *Element) SetChecked(v bool) {
	e.setCheckedQuiet(v)
	if e.doc != nil {
		e.doc.notifyChange()
	}
}

func (e *Element) setCheckedQuiet(v bool) {
	if v {
		e.attrs["checked"] = ""
	} else {
		delete(e.attrs, "checked")
	}
}
