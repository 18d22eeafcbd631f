// Package surface models the page the guest draws into: a small DOM with
// the bevy canvas, and the drag-and-drop listeners that feed dropped file
// text to the host bridge.
package surface

import (
	"context"

	"github.com/GriffinCanCode/ncube-web/internal/eventloop"
	"go.uber.org/zap"
)

// Dropper receives dropped file text. *bridge.Bridge implements it.
type Dropper interface {
	Drop(payload string)
}

type options struct {
	loop   *eventloop.Loop
	ctx    context.Context
	logger *zap.Logger
}

// Option configures Attach.
type Option func(*options)

// WithLoop reads dropped files off-loop and delivers the text back on l.
// Without it files are read inline.
func WithLoop(l *eventloop.Loop) Option { return func(o *options) { o.loop = l } }

// WithContext bounds file reads.
func WithContext(ctx context.Context) Option { return func(o *options) { o.ctx = ctx } }

// WithLogger sets the logger used for unreadable drops.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// Attach registers the drag-and-drop listeners on canvas. onHover is told
// when a drag enters or leaves; it may be nil. Only the first dropped file
// is read and a drop without files does nothing. When reads finish out of
// order, a read older than the last delivered drop is discarded.
func Attach(canvas *Element, d Dropper, onHover func(bool), opts ...Option) {
	o := options{ctx: context.Background(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	hover := func(v bool) {
		if onHover != nil {
			onHover(v)
		}
	}

	// Drop sequence numbers, loop-owned.
	var dropped, delivered uint64

	canvas.AddEventListener(EventDragOver, func(ev *Event) {
		ev.PreventDefault()
		hover(true)
	})
	canvas.AddEventListener(EventDragLeave, func(ev *Event) {
		ev.PreventDefault()
		hover(false)
	})
	canvas.AddEventListener(EventDrop, func(ev *Event) {
		ev.PreventDefault()
		hover(false)
		if len(ev.Files) == 0 {
			return
		}
		file := ev.Files[0]
		dropped++
		seq := dropped

		deliver := func(text string, err error) {
			if err != nil {
				o.logger.Warn("dropped file unreadable", zap.String("file", file.Name()), zap.Error(err))
				return
			}
			if seq < delivered {
				o.logger.Debug("stale drop discarded", zap.String("file", file.Name()))
				return
			}
			delivered = seq
			d.Drop(text)
		}
		if _, inMemory := file.(TextFile); inMemory || o.loop == nil {
			deliver(file.Text(o.ctx))
			return
		}
		eventloop.Await(o.loop, func() (string, error) {
			return file.Text(o.ctx)
		}, deliver)
	})
}
