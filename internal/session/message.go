package session

import (
	"github.com/GriffinCanCode/ncube-web/internal/surface"
)

// Outbound message types.
const (
	TypeSystem   = "system"
	TypePhase    = "phase"
	TypeHover    = "hover"
	TypeNotice   = "notice"
	TypeDownload = "download"
	TypeDOM      = "dom"
	TypeError    = "error"
	TypePong     = "pong"
)

// Inbound message types.
const (
	TypeDragOver      = surface.EventDragOver
	TypeDragLeave     = surface.EventDragLeave
	TypeDrop          = surface.EventDrop
	TypeDismissNotice = "dismiss_notice"
	TypePing          = "ping"
)

// Message is sent from a session to its page.
type Message struct {
	Type      string           `json:"type"`
	Session   string           `json:"session,omitempty"`
	Phase     string           `json:"phase,omitempty"`
	Hovering  *bool            `json:"hovering,omitempty"`
	Name      string           `json:"name,omitempty"`
	Content   string           `json:"content,omitempty"`
	MediaType string           `json:"media_type,omitempty"`
	Changes   []surface.Change `json:"changes,omitempty"`
	Text      string           `json:"text,omitempty"`
	Links     []Link           `json:"links,omitempty"`
	Error     string           `json:"error,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

// Link is an anchor shown in the notice.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// Inbound is sent from a page to its session.
type Inbound struct {
	Type  string             `json:"type"`
	Files []surface.TextFile `json:"files,omitempty"`
}

func noticeLinks() []Link {
	return []Link{
		{Href: surface.GitHubURL, Text: "available on GitHub"},
		{Href: surface.LatestRelease, Text: "binaries for Linux, Windows and MacOS"},
	}
}
