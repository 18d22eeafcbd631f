package surface

import (
	"context"
	"fmt"
	"os"
)

// Event types the canvas listens for.
const (
	EventDragOver    = "dragover"
	EventDragLeave   = "dragleave"
	EventDrop        = "drop"
	EventContextMenu = "contextmenu"
)

// Event is a dispatched DOM event.
type Event struct {
	Type   string
	Files  []File
	Target *Element

	defaultPrevented bool
}

// NewEvent creates an event of type typ carrying files.
func NewEvent(typ string, files ...File) *Event {
	return &Event{Type: typ, Files: files}
}

// PreventDefault cancels the browser's default handling.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// File is a dropped file.
type File interface {
	Name() string
	Text(ctx context.Context) (string, error)
}

// TextFile is a file whose content arrived with the event.
type TextFile struct {
	FileName string `json:"name"`
	Content  string `json:"text"`
}

// Name implements File.
func (f TextFile) Name() string { return f.FileName }

// Text implements File.
func (f TextFile) Text(context.Context) (string, error) { return f.Content, nil }

// DiskFile is a file read from the local filesystem on demand.
type DiskFile struct {
	Path string
}

// Name implements File.
func (f DiskFile) Name() string { return f.Path }

// Text implements File.
func (f DiskFile) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("read dropped file: %w", err)
	}
	return string(data), nil
}
