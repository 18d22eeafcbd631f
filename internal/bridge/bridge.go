// Package bridge implements the two calls the guest makes into its host:
// saving cube data as a download and taking the most recent drag-and-drop
// payload.
//
// A Bridge belongs to one session and is only touched from that session's
// event loop, so it carries no locks.
package bridge

import (
	"fmt"
	"time"

	"github.com/GriffinCanCode/ncube-web/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ncube-web/internal/shared/clock"
	"go.uber.org/zap"
)

// MediaJSON is the media type of exported data files.
const MediaJSON = "application/json"

// Download is a file handed to the user.
type Download struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Content   string `json:"content"`
}

// ExportFormatError reports export data that is not valid JSON.
type ExportFormatError struct {
	Dimension int
	Err       error
}

func (e *ExportFormatError) Error() string {
	return fmt.Sprintf("export %dcube: invalid json: %v", e.Dimension, e.Err)
}

func (e *ExportFormatError) Unwrap() error { return e.Err }

// Bridge holds the pending drop slot and delivers exports.
type Bridge struct {
	pending    string
	hasPending bool

	downloader Downloader
	clock      clock.Clock
	logger     *zap.Logger
	metrics    *monitoring.Metrics
}

// Option configures a Bridge.
type Option func(*Bridge)

func WithClock(c clock.Clock) Option { return func(b *Bridge) { b.clock = c } }

func WithLogger(l *zap.Logger) Option { return func(b *Bridge) { b.logger = l } }

func WithMetrics(m *monitoring.Metrics) Option { return func(b *Bridge) { b.metrics = m } }

// New creates a bridge delivering exports to d.
func New(d Downloader, opts ...Option) *Bridge {
	b := &Bridge{
		downloader: d,
		clock:      clock.Real(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Drop stores payload as the pending import, replacing any earlier one.
func (b *Bridge) Drop(payload string) {
	if b.hasPending {
		b.logger.Debug("replacing unread drop", zap.Int("old_bytes", len(b.pending)))
	}
	b.pending = payload
	b.hasPending = true
}

// Peek returns the pending payload without taking it.
func (b *Bridge) Peek() (string, bool) {
	return b.pending, b.hasPending
}

// Import takes the pending payload. A second call returns false until the
// next Drop.
func (b *Bridge) Import() (string, bool) {
	payload, ok := b.pending, b.hasPending
	b.pending, b.hasPending = "", false
	b.metrics.RecordImport(ok)
	return payload, ok
}

// Export re-indents data and delivers it as <dimension>cube-<unix>.data.
func (b *Bridge) Export(dimension int, data string) error {
	content, err := FormatExport(data)
	if err != nil {
		err = &ExportFormatError{Dimension: dimension, Err: err}
		b.metrics.RecordExport(err)
		return err
	}

	d := Download{
		Name:      FileName(dimension, b.clock.Now()),
		MediaType: MediaJSON,
		Content:   content,
	}
	if err := b.downloader.Deliver(d); err != nil {
		err = fmt.Errorf("deliver %s: %w", d.Name, err)
		b.metrics.RecordExport(err)
		return err
	}

	b.metrics.RecordExport(nil)
	b.logger.Info("exported cube data",
		zap.String("file", d.Name),
		zap.Int("dimension", dimension),
		zap.Int("bytes", len(content)))
	return nil
}

// FileName names an export file for dimension at t.
func FileName(dimension int, t time.Time) string {
	return fmt.Sprintf("%dcube-%d.data", dimension, t.Unix())
}
