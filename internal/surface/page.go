package surface

import (
	"github.com/GriffinCanCode/ncube-web/internal/bootstrap"
)

// Element IDs of the page.
const (
	CanvasID  = "bevy"
	LoaderID  = "loader"
	StatusID  = "loader-status"
	WarningID = "loader-warning"
	DropID    = "drop"
	NoticeID  = "notice"
)

// Page texts.
const (
	Title         = "-- ncube --"
	FetchingText  = "Fetching latest release..."
	FetchedText   = "Fetching latest release... DONE"
	EnteringText  = "Entering n-dimensional space..."
	WarningText   = "Brace yourself."
	DropText      = "-- DROP --"
	NoticeText    = "Hey there! Would you like to know more? 🤔"
	GitHubURL     = "https://github.com/ndavd/ncube"
	LatestRelease = "https://github.com/ndavd/ncube/releases/latest"
)

// Page is the ncube page: a loader view, the canvas, a drop overlay and the
// notice box.
type Page struct {
	Doc *Document

	canvas *Element
	loader *Element
	status  *Element
	warning *Element
	drop    *Element
	notice  *Element
}

// NewPage builds the initial page: loader visible, canvas hidden.
func NewPage() *Page {
	doc := NewDocument()
	body := doc.Root().AddElement(doc.CreateElement("body", ""))
	p := &Page{Doc: doc}

	p.notice = body.AddElement(doc.CreateElement("div", NoticeID))
	p.notice.Attributes["hidden"] = ""
	p.notice.AddElement(doc.CreateElement("button", "notice-close")).TextContent = "close"
	p.notice.AddElement(doc.CreateElement("div", "")).TextContent = NoticeText
	github := p.notice.AddElement(doc.CreateElement("a", ""))
	github.Attributes["href"] = GitHubURL
	github.TextContent = "available on GitHub"
	binaries := p.notice.AddElement(doc.CreateElement("a", ""))
	binaries.Attributes["href"] = LatestRelease
	binaries.TextContent = "binaries for Linux, Windows and MacOS"

	p.drop = body.AddElement(doc.CreateElement("div", DropID))
	p.drop.Attributes["hidden"] = ""
	p.drop.TextContent = DropText

	p.loader = body.AddElement(doc.CreateElement("div", LoaderID))
	p.loader.AddElement(doc.CreateElement("div", "")).TextContent = Title
	p.status = p.loader.AddElement(doc.CreateElement("div", StatusID))
	p.status.TextContent = FetchingText
	p.warning = p.loader.AddElement(doc.CreateElement("div", WarningID))
	p.warning.ClassName = "warning"
	p.warning.TextContent = WarningText
	p.warning.Attributes["hidden"] = ""

	p.canvas = body.AddElement(doc.CreateElement("canvas", CanvasID))
	p.canvas.Attributes["style"] = "display:none"
	p.canvas.AddEventListener(EventContextMenu, func(ev *Event) { ev.PreventDefault() })

	return p
}

// Canvas returns the bevy canvas.
func (p *Page) Canvas() *Element { return p.canvas }

// SetPhase updates the loader view for phase. The warning shows while the
// app loads. On Loaded the loader is hidden and the canvas shown.
func (p *Page) SetPhase(phase bootstrap.Phase) {
	switch phase {
	case bootstrap.FetchingBinary:
		p.status.SetText(FetchingText)
	case bootstrap.LoadingApp:
		p.status.SetText(FetchedText + "\n" + EnteringText)
		p.warning.SetHidden(false)
	case bootstrap.Loaded:
		p.loader.SetHidden(true)
		p.canvas.SetAttribute("style", "display:inline")
	}
}

// Loaded reports whether the canvas is shown.
func (p *Page) Loaded() bool {
	return p.canvas.GetAttribute("style") == "display:inline"
}

// SetHover shows or hides the drop overlay.
func (p *Page) SetHover(hovering bool) { p.drop.SetHidden(!hovering) }

// ShowNotice reveals the notice box.
func (p *Page) ShowNotice() { p.notice.SetHidden(false) }

// DismissNotice hides the notice box.
func (p *Page) DismissNotice() { p.notice.SetHidden(true) }

// NoticeVisible reports whether the notice box is shown.
func (p *Page) NoticeVisible() bool { return !p.notice.Hidden() }
