// Package session hosts one ncube page: an event loop owning the bootstrap
// machine, the guest runtime, the host bridge and the page document, with a
// message channel to whatever presents it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/ncube-web/internal/bootstrap"
	"github.com/GriffinCanCode/ncube-web/internal/bridge"
	"github.com/GriffinCanCode/ncube-web/internal/eventloop"
	"github.com/GriffinCanCode/ncube-web/internal/guest"
	"github.com/GriffinCanCode/ncube-web/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ncube-web/internal/loader"
	"github.com/GriffinCanCode/ncube-web/internal/release"
	"github.com/GriffinCanCode/ncube-web/internal/resource"
	"github.com/GriffinCanCode/ncube-web/internal/shared/clock"
	"github.com/GriffinCanCode/ncube-web/internal/surface"
	"go.uber.org/zap"
)

// DefaultOutboundBuffer is the size of a session's outbound channel.
const DefaultOutboundBuffer = 64

// ErrClosed is returned for messages sent to a closed session.
var ErrClosed = errors.New("session closed")

// Config holds per-session settings.
type Config struct {
	Source release.Source
	// Downloader receives exports. Nil sends them to the page inside
	// download messages; otherwise the page only gets the file name.
	Downloader bridge.Downloader
	// NewLoader picks the module loader. Nil means the script loader.
	NewLoader func(env loader.Env) loader.Loader

	NoticeDelay    time.Duration
	FrameInterval  time.Duration
	ScriptTimeout  time.Duration
	MemoryPages    uint32
	OutboundBuffer int

	Clock   clock.Clock
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
}

// Session is one running page.
type Session struct {
	id     string
	cfg    Config
	logger *zap.Logger

	// ctx ends when the session closes; every off-loop wait runs under it.
	ctx    context.Context
	cancel context.CancelFunc

	loop    *eventloop.Loop
	store   *resource.Store
	runtime *guest.Runtime
	bridge  *bridge.Bridge
	page    *surface.Page
	machine *bootstrap.Machine
	out     chan Message

	// Loop-owned.
	instances []*guest.Instance
	frame     *clock.Timer
	loaded    bool
	closed    bool

	startOnce sync.Once
	closeOnce sync.Once
	started   bool
	mu        sync.Mutex
}

// New builds a session. Nothing runs until Start.
func New(ctx context.Context, id string, cfg Config) (*Session, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("session %s: no bundle source", id)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = 100 * time.Millisecond
	}
	if cfg.OutboundBuffer <= 0 {
		cfg.OutboundBuffer = DefaultOutboundBuffer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("session", id))

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:     id,
		cfg:    cfg,
		ctx:    sctx,
		cancel: cancel,
		logger: logger,
		loop:   eventloop.New(),
		store:  resource.NewStore(),
		page:   surface.NewPage(),
		out:    make(chan Message, cfg.OutboundBuffer),
	}

	downloader := bridge.Downloader(bridge.FuncDownloader(s.pushDownload))
	if cfg.Downloader != nil {
		downloader = bridge.FuncDownloader(s.announceDownload)
	}
	s.bridge = bridge.New(downloader,
		bridge.WithClock(cfg.Clock),
		bridge.WithLogger(logger),
		bridge.WithMetrics(cfg.Metrics))

	rt, err := guest.New(ctx, s.bridge, guest.Config{MemoryPages: cfg.MemoryPages, Logger: logger})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	s.runtime = rt

	surface.Attach(s.page.Canvas(), s.bridge, s.onHover,
		surface.WithLoop(s.loop),
		surface.WithContext(sctx),
		surface.WithLogger(logger))

	env := loader.Env{
		Store:      s.store,
		Guest:      rt,
		Bridge:     s.bridge,
		Logger:     logger,
		OnInstance: s.adopt,
	}
	newLoader := cfg.NewLoader
	if newLoader == nil {
		newLoader = func(env loader.Env) loader.Loader {
			lc := loader.DefaultScriptConfig()
			if cfg.ScriptTimeout > 0 {
				lc.Timeout = cfg.ScriptTimeout
			}
			return loader.NewScriptLoader(env, lc)
		}
	}

	s.machine = bootstrap.New(bootstrap.Config{
		Source:      cfg.Source,
		Store:       s.store,
		Loader:      newLoader(env),
		Loop:        s.loop,
		Clock:       cfg.Clock,
		NoticeDelay: cfg.NoticeDelay,
		Logger:      logger,
		Metrics:     cfg.Metrics,
	})
	s.machine.OnPhase(s.onPhase)
	s.machine.OnNotice(s.onNotice)
	return s, nil
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// Outbound returns the channel of messages for the page. It is closed by
// Close.
func (s *Session) Outbound() <-chan Message { return s.out }

// Start runs the loop and begins bootstrapping. Later calls do nothing.
// The bootstrap ends with ctx or with Close, whichever comes first.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, stop := context.WithCancel(ctx)
		context.AfterFunc(s.ctx, stop)

		s.mu.Lock()
		s.started = true
		s.mu.Unlock()

		go s.loop.Run()
		s.loop.Post(func() {
			s.emit(Message{Type: TypeSystem, Text: "session " + s.id + " connected"})
		})
		s.machine.Start(ctx, s.onBootstrapDone)
	})
}

// Send delivers an inbound page message to the session loop.
func (s *Session) Send(in Inbound) error {
	if !s.loop.Post(func() { s.handle(in) }) {
		return ErrClosed
	}
	return nil
}

// Inspect runs fn on the loop with the page and waits for it.
func (s *Session) Inspect(fn func(page *surface.Page, phase bootstrap.Phase)) bool {
	return s.loop.Sync(func() { fn(s.page, s.machine.Phase()) })
}

func (s *Session) handle(in Inbound) {
	if s.closed {
		return
	}
	switch in.Type {
	case TypeDragOver, TypeDragLeave, TypeDrop:
		files := make([]surface.File, len(in.Files))
		for i, f := range in.Files {
			files[i] = f
		}
		s.page.Canvas().Dispatch(surface.NewEvent(in.Type, files...))
	case TypeDismissNotice:
		s.page.DismissNotice()
		s.flushDOM()
	case TypePing:
		s.emit(Message{Type: TypePong})
	default:
		s.emit(Message{Type: TypeError, Error: "unknown message type: " + in.Type})
	}
}

// Drop feeds a file straight to the canvas, as the terminal host does.
func (s *Session) Drop(f surface.File) error {
	if !s.loop.Post(func() {
		s.page.Canvas().Dispatch(surface.NewEvent(surface.EventDrop, f))
	}) {
		return ErrClosed
	}
	return nil
}

func (s *Session) onPhase(p bootstrap.Phase) {
	s.page.SetPhase(p)
	s.emit(Message{Type: TypePhase, Phase: p.String()})
	s.flushDOM()
}

func (s *Session) onHover(hovering bool) {
	s.page.SetHover(hovering)
	s.emit(Message{Type: TypeHover, Hovering: &hovering})
	s.flushDOM()
}

func (s *Session) onNotice() {
	s.page.ShowNotice()
	s.emit(Message{Type: TypeNotice, Text: surface.NoticeText, Links: noticeLinks()})
	s.flushDOM()
}

func (s *Session) onBootstrapDone(err error) {
	if err != nil {
		s.emit(Message{Type: TypeError, Error: err.Error()})
		return
	}
	s.loaded = true
	s.scheduleFrame()
}

func (s *Session) adopt(inst *guest.Instance) {
	s.instances = append(s.instances, inst)
}

func (s *Session) scheduleFrame() {
	if s.closed || !s.animated() {
		return
	}
	s.frame = s.cfg.Clock.AfterFunc(s.cfg.FrameInterval, func() {
		s.loop.Post(s.tick)
	})
}

func (s *Session) animated() bool {
	for _, inst := range s.instances {
		if inst.Animated() {
			return true
		}
	}
	return false
}

func (s *Session) tick() {
	if s.closed {
		return
	}
	ctx := s.ctx
	for _, inst := range s.instances {
		if err := inst.Tick(ctx); err != nil {
			s.logger.Error("guest frame failed", zap.String("guest", inst.Name()), zap.Error(err))
			s.emit(Message{Type: TypeError, Error: err.Error()})
			return
		}
	}
	s.scheduleFrame()
}

func (s *Session) pushDownload(d bridge.Download) error {
	if s.closed {
		return ErrClosed
	}
	s.emit(Message{Type: TypeDownload, Name: d.Name, Content: d.Content, MediaType: d.MediaType})
	return nil
}

func (s *Session) announceDownload(d bridge.Download) error {
	if err := s.cfg.Downloader.Deliver(d); err != nil {
		return err
	}
	s.emit(Message{Type: TypeDownload, Name: d.Name, MediaType: d.MediaType})
	return nil
}

func (s *Session) flushDOM() {
	if changes := s.page.Doc.Flush(); len(changes) > 0 {
		s.emit(Message{Type: TypeDOM, Changes: changes})
	}
}

// emit queues m for the page. A full channel drops the message.
func (s *Session) emit(m Message) {
	if s.closed {
		return
	}
	m.Session = s.id
	m.Timestamp = s.cfg.Clock.Now().Unix()
	select {
	case s.out <- m:
		s.cfg.Metrics.RecordWSMessage("outbound", m.Type)
	default:
		s.logger.Warn("outbound buffer full, dropping message", zap.String("type", m.Type))
	}
}

// Close stops the loop, cancels timers, revokes resources and releases the
// guest. It must not be called from the session loop.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()

		shutdown := func() {
			s.closed = true
			s.machine.Close()
			if s.frame != nil {
				s.frame.Stop()
			}
		}
		if !started || !s.loop.Sync(shutdown) {
			shutdown()
		}
		s.cancel()
		s.loop.Stop()
		if started {
			<-s.loop.Done()
		}

		s.store.Close()
		err = s.runtime.Close(ctx)
		close(s.out)
		s.logger.Debug("session closed")
	})
	return err
}
