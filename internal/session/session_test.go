package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/ncube-web/internal/bootstrap"
	"github.com/GriffinCanCode/ncube-web/internal/bridge"
	"github.com/GriffinCanCode/ncube-web/internal/loader"
	"github.com/GriffinCanCode/ncube-web/internal/release"
	"github.com/GriffinCanCode/ncube-web/internal/resource"
	"github.com/GriffinCanCode/ncube-web/internal/shared/clock"
	"github.com/GriffinCanCode/ncube-web/internal/shared/testutil"
	"github.com/GriffinCanCode/ncube-web/internal/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector drains a session's outbound channel in the background.
type collector struct {
	mu   sync.Mutex
	msgs []Message
	done chan struct{}
}

func collect(s *Session) *collector {
	c := &collector{done: make(chan struct{})}
	go func() {
		defer close(c.done)
		for m := range s.Outbound() {
			c.mu.Lock()
			c.msgs = append(c.msgs, m)
			c.mu.Unlock()
		}
	}()
	return c
}

func (c *collector) ofType(typ string) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Message
	for _, m := range c.msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func (c *collector) phases() []string {
	var out []string
	for _, m := range c.ofType(TypePhase) {
		out = append(out, m.Phase)
	}
	return out
}

func (c *collector) waitFor(t *testing.T, typ string) Message {
	t.Helper()
	var found Message
	require.Eventually(t, func() bool {
		msgs := c.ofType(typ)
		if len(msgs) == 0 {
			return false
		}
		found = msgs[len(msgs)-1]
		return true
	}, 5*time.Second, 5*time.Millisecond, "no %s message", typ)
	return found
}

func newSession(t *testing.T, src release.Source, fake *clock.Fake) (*Session, *collector) {
	t.Helper()
	ctx := context.Background()
	s, err := New(ctx, "sess-test", Config{
		Source:        src,
		Clock:         fake,
		NoticeDelay:   3 * time.Second,
		FrameInterval: 100 * time.Millisecond,
		MemoryPages:   16,
	})
	require.NoError(t, err)
	c := collect(s)
	t.Cleanup(func() {
		_ = s.Close(ctx)
		<-c.done
	})
	return s, c
}

func echoBundle(t *testing.T) release.Source {
	return release.BytesSource(testutil.BuildBundle(t, testutil.DefaultScript, testutil.EchoGuest()))
}

// waitLoaded waits for the Loaded phase message, then for the loop turn
// that sent it to finish arming its timers.
func waitLoaded(t *testing.T, s *Session, c *collector) {
	t.Helper()
	require.Eventually(t, func() bool {
		p := c.phases()
		return len(p) > 0 && p[len(p)-1] == bootstrap.Loaded.String()
	}, 5*time.Second, 5*time.Millisecond)
	require.True(t, s.Inspect(func(*surface.Page, bootstrap.Phase) {}))
}

func TestSessionBootstrapsAndShowsCanvas(t *testing.T) {
	fake := clock.NewFake(time.Unix(1700000000, 0))
	s, c := newSession(t, echoBundle(t), fake)
	s.Start(context.Background())

	waitLoaded(t, s, c)
	assert.Equal(t, []string{"FetchingBinary", "LoadingApp", "Loaded"}, c.phases())
	assert.NotEmpty(t, c.ofType(TypeSystem))

	require.True(t, s.Inspect(func(page *surface.Page, phase bootstrap.Phase) {
		assert.Equal(t, bootstrap.Loaded, phase)
		assert.True(t, page.Loaded())
	}))

	var sawCanvas bool
	for _, m := range c.ofType(TypeDOM) {
		for _, ch := range m.Changes {
			if ch.Selector == "#"+surface.CanvasID && ch.Value == "display:inline" {
				sawCanvas = true
			}
		}
	}
	assert.True(t, sawCanvas)
}

func TestSessionDropExportRoundTrip(t *testing.T) {
	fake := clock.NewFake(time.Unix(1700000000, 0))
	s, c := newSession(t, echoBundle(t), fake)
	s.Start(context.Background())
	waitLoaded(t, s, c)

	require.NoError(t, s.Send(Inbound{Type: TypeDragOver}))
	require.NoError(t, s.Send(Inbound{Type: TypeDrop, Files: []surface.TextFile{{FileName: "in.data", Content: `{"a":1}`}}}))

	var dl Message
	require.Eventually(t, func() bool {
		fake.Advance(100 * time.Millisecond)
		msgs := c.ofType(TypeDownload)
		if len(msgs) == 0 {
			return false
		}
		dl = msgs[0]
		return true
	}, 5*time.Second, 10*time.Millisecond)

	assert.Regexp(t, `^4cube-\d+\.data$`, dl.Name)
	assert.Equal(t, "{\n  \"a\": 1\n}", dl.Content)
	assert.Equal(t, bridge.MediaJSON, dl.MediaType)

	hovers := c.ofType(TypeHover)
	require.Len(t, hovers, 2)
	assert.True(t, *hovers[0].Hovering)
	assert.False(t, *hovers[1].Hovering)

	// The drop is drained once: further frames export nothing new.
	for i := 0; i < 5; i++ {
		fake.Advance(100 * time.Millisecond)
	}
	s.Inspect(func(*surface.Page, bootstrap.Phase) {})
	assert.Len(t, c.ofType(TypeDownload), 1)
}

func TestSessionNotice(t *testing.T) {
	fake := clock.NewFake(time.Unix(1700000000, 0))
	s, c := newSession(t, release.BytesSource(testutil.BuildBundle(t, testutil.DefaultScript, testutil.NoopGuest())), fake)
	s.Start(context.Background())
	waitLoaded(t, s, c)

	fake.Advance(2999 * time.Millisecond)
	s.Inspect(func(*surface.Page, bootstrap.Phase) {})
	assert.Empty(t, c.ofType(TypeNotice))

	fake.Advance(time.Millisecond)
	n := c.waitFor(t, TypeNotice)
	assert.Equal(t, surface.NoticeText, n.Text)
	assert.Len(t, n.Links, 2)

	require.NoError(t, s.Send(Inbound{Type: TypeDismissNotice}))
	require.True(t, s.Inspect(func(page *surface.Page, _ bootstrap.Phase) {
		assert.False(t, page.NoticeVisible())
	}))
}

func TestSessionBootstrapFailure(t *testing.T) {
	fake := clock.NewFake(time.Unix(1700000000, 0))
	src := sourceFunc(func(context.Context) ([]byte, error) {
		return nil, &release.NetworkError{URL: "http://upstream", StatusCode: 500}
	})
	s, c := newSession(t, src, fake)
	s.Start(context.Background())

	m := c.waitFor(t, TypeError)
	assert.Contains(t, m.Error, "500")
	assert.Equal(t, []string{"FetchingBinary"}, c.phases())

	require.True(t, s.Inspect(func(page *surface.Page, phase bootstrap.Phase) {
		assert.Equal(t, bootstrap.FetchingBinary, phase)
		assert.False(t, page.Loaded())
	}))
}

func TestSessionPingAndUnknown(t *testing.T) {
	fake := clock.NewFake(time.Unix(1700000000, 0))
	s, c := newSession(t, echoBundle(t), fake)
	s.Start(context.Background())

	require.NoError(t, s.Send(Inbound{Type: TypePing}))
	c.waitFor(t, TypePong)

	require.NoError(t, s.Send(Inbound{Type: "teleport"}))
	m := c.waitFor(t, TypeError)
	assert.Contains(t, m.Error, "teleport")
}

func TestSessionClose(t *testing.T) {
	fake := clock.NewFake(time.Unix(1700000000, 0))
	s, c := newSession(t, echoBundle(t), fake)
	s.Start(context.Background())
	waitLoaded(t, s, c)

	require.NoError(t, s.Close(context.Background()))
	<-c.done
	assert.ErrorIs(t, s.Send(Inbound{Type: TypePing}), ErrClosed)
	assert.ErrorIs(t, s.Drop(surface.TextFile{Content: "x"}), ErrClosed)
	assert.NoError(t, s.Close(context.Background()))
}

func TestSessionCloseBeforeStart(t *testing.T) {
	s, err := New(context.Background(), "sess-idle", Config{Source: echoBundle(t)})
	require.NoError(t, err)
	require.NoError(t, s.Close(context.Background()))
	_, open := <-s.Outbound()
	assert.False(t, open)
}

func TestNewRequiresSource(t *testing.T) {
	_, err := New(context.Background(), "sess-x", Config{})
	assert.Error(t, err)
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	m := NewManager(Config{Source: echoBundle(t), Clock: clock.NewFake(time.Unix(0, 0))})

	a, err := m.Open(ctx)
	require.NoError(t, err)
	b, err := m.Open(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, m.Count())

	got, ok := m.Get(a.ID())
	require.True(t, ok)
	assert.Same(t, a, got)

	require.NoError(t, m.Close(ctx, a.ID()))
	assert.Equal(t, 1, m.Count())
	require.NoError(t, m.Close(ctx, "sess-missing"))

	require.NoError(t, m.Shutdown(ctx))
	assert.Equal(t, 0, m.Count())
	assert.ErrorIs(t, b.Send(Inbound{Type: TypePing}), ErrClosed)
}

type sourceFunc func(ctx context.Context) ([]byte, error)

func (f sourceFunc) Bundle(ctx context.Context) ([]byte, error) { return f(ctx) }


func TestSessionCustomDownloader(t *testing.T) {
	fake := clock.NewFake(time.Unix(1700000000, 0))
	dir := t.TempDir()
	ctx := context.Background()
	s, err := New(ctx, "sess-dir", Config{
		Source:        echoBundle(t),
		Downloader:    bridge.DirDownloader{Dir: dir},
		Clock:         fake,
		FrameInterval: 100 * time.Millisecond,
		MemoryPages:   16,
	})
	require.NoError(t, err)
	c := collect(s)
	t.Cleanup(func() {
		_ = s.Close(ctx)
		<-c.done
	})

	s.Start(ctx)
	waitLoaded(t, s, c)
	require.NoError(t, s.Drop(surface.TextFile{FileName: "x", Content: `[1]`}))

	var dl Message
	require.Eventually(t, func() bool {
		fake.Advance(100 * time.Millisecond)
		msgs := c.ofType(TypeDownload)
		if len(msgs) == 0 {
			return false
		}
		dl = msgs[0]
		return true
	}, 5*time.Second, 10*time.Millisecond)

	assert.Empty(t, dl.Content)
	data, err := os.ReadFile(filepath.Join(dir, dl.Name))
	require.NoError(t, err)
	assert.Equal(t, "[\n  1\n]", string(data))
}

// pendingSession starts a session whose entry point never settles, so it
// stays in LoadingApp and nothing drains the bridge. The entry's context is
// sent on the returned channel.
func pendingSession(t *testing.T) (*Session, *collector, <-chan context.Context) {
	t.Helper()
	entered := make(chan context.Context, 1)
	entry := loader.EntryFunc(func(ctx context.Context, _ resource.Handle) *loader.Activation {
		entered <- ctx
		return loader.NewActivation()
	})
	s, err := New(context.Background(), "sess-pending", Config{
		Source:      echoBundle(t),
		MemoryPages: 16,
		NewLoader: func(loader.Env) loader.Loader {
			return loader.StaticLoader{Entry: entry}
		},
	})
	require.NoError(t, err)
	c := collect(s)
	t.Cleanup(func() {
		_ = s.Close(context.Background())
		<-c.done
	})
	s.Start(context.Background())
	return s, c, entered
}

func TestSessionCloseReleasesPendingActivation(t *testing.T) {
	s, _, entered := pendingSession(t)

	var actx context.Context
	select {
	case actx = <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("entry point never ran")
	}
	assert.NoError(t, actx.Err())

	require.NoError(t, s.Close(context.Background()))
	select {
	case <-actx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("activation context still live after Close")
	}
}

func TestSessionLastDropWins(t *testing.T) {
	s, _, entered := pendingSession(t)
	<-entered

	drop := func(text string) Inbound {
		return Inbound{Type: TypeDrop, Files: []surface.TextFile{{FileName: text + ".data", Content: text}}}
	}
	require.NoError(t, s.Send(drop("first")))
	require.NoError(t, s.Send(drop("second")))

	var (
		got string
		ok  bool
	)
	require.True(t, s.loop.Sync(func() { got, ok = s.bridge.Import() }))
	require.True(t, ok)
	assert.Equal(t, "second", got)

	require.True(t, s.loop.Sync(func() { _, ok = s.bridge.Import() }))
	assert.False(t, ok)
}
