package surface

import (
	"strings"
)

// Document is a lightweight element tree standing in for the page DOM.
// It is owned by the session loop and is not safe for concurrent use.
type Document struct {
	root    *Element
	changes []Change
}

// Change is one recorded DOM modification, replayed by the page.
type Change struct {
	Type     string `json:"type"` // set_attribute, remove_attribute, set_text
	Selector string `json:"selector"`
	Property string `json:"property,omitempty"`
	Value    string `json:"value,omitempty"`
}

// Element is a node in a Document.
type Element struct {
	TagName     string
	ID          string
	ClassName   string
	TextContent string
	Attributes  map[string]string
	Children    []*Element
	Parent      *Element

	doc       *Document
	listeners map[string][]func(*Event)
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	d := &Document{}
	d.root = d.CreateElement("document", "")
	return d
}

// Root returns the document node.
func (d *Document) Root() *Element { return d.root }

// CreateElement returns a detached element bound to d.
func (d *Document) CreateElement(tag, id string) *Element {
	return &Element{
		TagName:    tag,
		ID:         id,
		Attributes: make(map[string]string),
		doc:        d,
		listeners:  make(map[string][]func(*Event)),
	}
}

// Query finds elements by selector: "#id", ".class", "tag" or "tag#id".
func (d *Document) Query(selector string) []*Element {
	tag, id, _ := strings.Cut(selector, "#")
	switch {
	case id != "":
		elem := findByID(d.root, id)
		if elem == nil || (tag != "" && !strings.EqualFold(elem.TagName, tag)) {
			return nil
		}
		return []*Element{elem}
	case strings.HasPrefix(selector, "."):
		return findByClass(d.root, strings.TrimPrefix(selector, "."))
	default:
		return findByTag(d.root, selector)
	}
}

// GetElementByID returns the element with id, or nil.
func (d *Document) GetElementByID(id string) *Element {
	return findByID(d.root, id)
}

// Changes returns accumulated changes without clearing them.
func (d *Document) Changes() []Change {
	return append([]Change(nil), d.changes...)
}

// Flush returns accumulated changes and clears them.
func (d *Document) Flush() []Change {
	out := d.changes
	d.changes = nil
	return out
}

func (d *Document) record(c Change) {
	d.changes = append(d.changes, c)
}

// Selector returns "#id" for elements with an ID, otherwise the tag name.
func (e *Element) Selector() string {
	if e.ID != "" {
		return "#" + e.ID
	}
	return e.TagName
}

// GetAttribute retrieves attribute value
func (e *Element) GetAttribute(name string) string {
	return e.Attributes[name]
}

// SetAttribute sets an attribute and records the change when the value differs.
func (e *Element) SetAttribute(name, value string) {
	if old, ok := e.Attributes[name]; ok && old == value {
		return
	}
	e.Attributes[name] = value
	e.doc.record(Change{Type: "set_attribute", Selector: e.Selector(), Property: name, Value: value})
}

// RemoveAttribute deletes an attribute and records the change.
func (e *Element) RemoveAttribute(name string) {
	if _, ok := e.Attributes[name]; !ok {
		return
	}
	delete(e.Attributes, name)
	e.doc.record(Change{Type: "remove_attribute", Selector: e.Selector(), Property: name})
}

// SetText replaces the text content and records the change.
func (e *Element) SetText(text string) {
	if e.TextContent == text {
		return
	}
	e.TextContent = text
	e.doc.record(Change{Type: "set_text", Selector: e.Selector(), Value: text})
}

// Hidden reports whether the hidden attribute is present.
func (e *Element) Hidden() bool {
	_, ok := e.Attributes["hidden"]
	return ok
}

// SetHidden toggles the hidden attribute.
func (e *Element) SetHidden(hidden bool) {
	if hidden {
		e.SetAttribute("hidden", "")
		return
	}
	e.RemoveAttribute("hidden")
}

// AddElement adds a child element
func (e *Element) AddElement(child *Element) *Element {
	child.Parent = e
	e.Children = append(e.Children, child)
	return child
}

// Remove removes element from parent
func (e *Element) Remove() {
	if e.Parent == nil {
		return
	}
	children := e.Parent.Children[:0]
	for _, child := range e.Parent.Children {
		if child != e {
			children = append(children, child)
		}
	}
	e.Parent.Children = children
	e.Parent = nil
}

// AddEventListener registers fn for events of type typ.
func (e *Element) AddEventListener(typ string, fn func(*Event)) {
	e.listeners[typ] = append(e.listeners[typ], fn)
}

// Dispatch delivers ev to the listeners registered for its type, in
// registration order. It returns false if a listener prevented the default
// action.
func (e *Element) Dispatch(ev *Event) bool {
	ev.Target = e
	for _, fn := range e.listeners[ev.Type] {
		fn(ev)
	}
	return !ev.DefaultPrevented()
}

func findByID(elem *Element, id string) *Element {
	if elem.ID == id {
		return elem
	}
	for _, child := range elem.Children {
		if found := findByID(child, id); found != nil {
			return found
		}
	}
	return nil
}

func findByClass(elem *Element, class string) []*Element {
	var result []*Element
	for _, c := range strings.Fields(elem.ClassName) {
		if c == class {
			result = append(result, elem)
			break
		}
	}
	for _, child := range elem.Children {
		result = append(result, findByClass(child, class)...)
	}
	return result
}

func findByTag(elem *Element, tag string) []*Element {
	var result []*Element
	if strings.EqualFold(elem.TagName, tag) {
		result = append(result, elem)
	}
	for _, child := range elem.Children {
		result = append(result, findByTag(child, tag)...)
	}
	return result
}
