package surface

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GriffinCanCode/ncube-web/internal/bootstrap"
	"github.com/GriffinCanCode/ncube-web/internal/eventloop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type dropRecorder struct {
	drops []string
}

func (r *dropRecorder) Drop(payload string) { r.drops = append(r.drops, payload) }

func attached(t *testing.T, opts ...Option) (*Page, *dropRecorder, *[]bool) {
	t.Helper()
	p := NewPage()
	rec := &dropRecorder{}
	var hovers []bool
	Attach(p.Canvas(), rec, func(v bool) {
		hovers = append(hovers, v)
		p.SetHover(v)
	}, opts...)
	return p, rec, &hovers
}

func TestDragOverAndLeave(t *testing.T) {
	p, rec, hovers := attached(t)

	assert.False(t, p.Canvas().Dispatch(NewEvent(EventDragOver)))
	assert.Equal(t, []bool{true}, *hovers)
	assert.False(t, p.Doc.GetElementByID(DropID).Hidden())

	assert.False(t, p.Canvas().Dispatch(NewEvent(EventDragLeave)))
	assert.Equal(t, []bool{true, false}, *hovers)
	assert.True(t, p.Doc.GetElementByID(DropID).Hidden())
	assert.Empty(t, rec.drops)
}

func TestDropReadsFirstFile(t *testing.T) {
	p, rec, hovers := attached(t)

	p.Canvas().Dispatch(NewEvent(EventDragOver))
	ok := p.Canvas().Dispatch(NewEvent(EventDrop,
		TextFile{FileName: "4cube.data", Content: `{"a":1}`},
		TextFile{FileName: "other.data", Content: "ignored"},
	))

	assert.False(t, ok)
	assert.Equal(t, []string{`{"a":1}`}, rec.drops)
	assert.Equal(t, []bool{true, false}, *hovers)
}

func TestDropWithoutFiles(t *testing.T) {
	p, rec, hovers := attached(t)

	assert.False(t, p.Canvas().Dispatch(NewEvent(EventDrop)))
	assert.Empty(t, rec.drops)
	assert.Equal(t, []bool{false}, *hovers)
}

func TestDropUnreadableFile(t *testing.T) {
	p, rec, _ := attached(t)

	p.Canvas().Dispatch(NewEvent(EventDrop, DiskFile{Path: filepath.Join(t.TempDir(), "missing")}))
	assert.Empty(t, rec.drops)
}

func TestDropDiskFileOffLoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "5cube.data")
	require.NoError(t, os.WriteFile(path, []byte("[1,2]"), 0o644))

	loop := eventloop.New()
	go loop.Run()
	t.Cleanup(loop.Stop)

	var (
		p   *Page
		rec *dropRecorder
	)
	require.True(t, loop.Sync(func() {
		p, rec, _ = attached(t, WithLoop(loop), WithContext(context.Background()))
		p.Canvas().Dispatch(NewEvent(EventDrop, DiskFile{Path: path}))
		assert.Empty(t, rec.drops, "read completes on a later turn")
	}))

	require.Eventually(t, func() bool {
		var n int
		loop.Sync(func() { n = len(rec.drops) })
		return n == 1
	}, time.Second, 5*time.Millisecond)
	loop.Sync(func() { assert.Equal(t, []string{"[1,2]"}, rec.drops) })
}

// gatedFile is a file whose read blocks until gate is closed.
type gatedFile struct {
	name, text string
	gate       chan struct{}
}

func (f gatedFile) Name() string { return f.name }

func (f gatedFile) Text(ctx context.Context) (string, error) {
	select {
	case <-f.gate:
		return f.text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestTextDropsInOneTurnKeepOrder(t *testing.T) {
	loop := eventloop.New()
	go loop.Run()
	t.Cleanup(loop.Stop)

	var rec *dropRecorder
	require.True(t, loop.Sync(func() {
		var p *Page
		p, rec, _ = attached(t, WithLoop(loop))
		p.Canvas().Dispatch(NewEvent(EventDrop, TextFile{FileName: "a", Content: "first"}))
		p.Canvas().Dispatch(NewEvent(EventDrop, TextFile{FileName: "b", Content: "second"}))
	}))
	loop.Sync(func() { assert.Equal(t, []string{"first", "second"}, rec.drops) })
}

func TestSlowEarlierReadIsDiscarded(t *testing.T) {
	loop := eventloop.New()
	go loop.Run()
	t.Cleanup(loop.Stop)

	core, logs := observer.New(zap.DebugLevel)
	slow := gatedFile{name: "slow", text: "first", gate: make(chan struct{})}
	fast := gatedFile{name: "fast", text: "second", gate: make(chan struct{})}
	close(fast.gate)

	var rec *dropRecorder
	require.True(t, loop.Sync(func() {
		var p *Page
		p, rec, _ = attached(t, WithLoop(loop), WithLogger(zap.New(core)))
		p.Canvas().Dispatch(NewEvent(EventDrop, slow))
		p.Canvas().Dispatch(NewEvent(EventDrop, fast))
	}))

	require.Eventually(t, func() bool {
		var n int
		loop.Sync(func() { n = len(rec.drops) })
		return n == 1
	}, time.Second, 5*time.Millisecond)

	close(slow.gate)
	require.Eventually(t, func() bool {
		return logs.FilterMessage("stale drop discarded").Len() == 1
	}, time.Second, 5*time.Millisecond)
	loop.Sync(func() { assert.Equal(t, []string{"second"}, rec.drops) })
}

func TestEventsWithoutListenersKeepDefault(t *testing.T) {
	p := NewPage()
	assert.True(t, p.Canvas().Dispatch(NewEvent(EventDrop)))
	assert.False(t, p.Canvas().Dispatch(NewEvent(EventContextMenu)))
}

func TestPagePhases(t *testing.T) {
	p := NewPage()
	assert.False(t, p.Loaded())
	assert.Equal(t, "display:none", p.Canvas().GetAttribute("style"))

	assert.True(t, p.Doc.GetElementByID(WarningID).Hidden())

	p.SetPhase(bootstrap.FetchingBinary)
	assert.Empty(t, p.Doc.Changes(), "initial text already matches")

	p.SetPhase(bootstrap.LoadingApp)
	assert.Equal(t, FetchedText+"\n"+EnteringText, p.Doc.GetElementByID(StatusID).TextContent)
	assert.False(t, p.Doc.GetElementByID(WarningID).Hidden())

	p.SetPhase(bootstrap.Loaded)
	assert.True(t, p.Loaded())
	assert.True(t, p.Doc.GetElementByID(LoaderID).Hidden())

	assert.Equal(t, []Change{
		{Type: "set_text", Selector: "#" + StatusID, Value: FetchedText + "\n" + EnteringText},
		{Type: "remove_attribute", Selector: "#" + WarningID, Property: "hidden"},
		{Type: "set_attribute", Selector: "#" + LoaderID, Property: "hidden"},
		{Type: "set_attribute", Selector: "#" + CanvasID, Property: "style", Value: "display:inline"},
	}, p.Doc.Flush())
	assert.Empty(t, p.Doc.Flush())
}

func TestNotice(t *testing.T) {
	p := NewPage()
	assert.False(t, p.NoticeVisible())

	p.ShowNotice()
	assert.True(t, p.NoticeVisible())
	p.DismissNotice()
	assert.False(t, p.NoticeVisible())

	assert.Equal(t, []Change{
		{Type: "remove_attribute", Selector: "#" + NoticeID, Property: "hidden"},
		{Type: "set_attribute", Selector: "#" + NoticeID, Property: "hidden"},
	}, p.Doc.Flush())
}

func TestQuery(t *testing.T) {
	p := NewPage()

	require.Len(t, p.Doc.Query("canvas#bevy"), 1)
	assert.Same(t, p.Canvas(), p.Doc.Query("#bevy")[0])
	assert.Empty(t, p.Doc.Query("div#bevy"))
	assert.Len(t, p.Doc.Query("canvas"), 1)
	assert.Len(t, p.Doc.Query(".warning"), 1)
	assert.Len(t, p.Doc.Query("a"), 2)
}

func TestRemove(t *testing.T) {
	doc := NewDocument()
	parent := doc.Root().AddElement(doc.CreateElement("div", "p"))
	child := parent.AddElement(doc.CreateElement("span", "c"))

	child.Remove()
	assert.Empty(t, parent.Children)
	assert.Nil(t, doc.GetElementByID("c"))
	child.Remove()
}
