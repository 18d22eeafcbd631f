package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/ncube-web/internal/bundle"
	"github.com/GriffinCanCode/ncube-web/internal/eventloop"
	"github.com/GriffinCanCode/ncube-web/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ncube-web/internal/loader"
	"github.com/GriffinCanCode/ncube-web/internal/release"
	"github.com/GriffinCanCode/ncube-web/internal/resource"
	"github.com/GriffinCanCode/ncube-web/internal/shared/clock"
	"go.uber.org/zap"
)

// DefaultNoticeDelay is how long after Loaded the notice appears.
const DefaultNoticeDelay = 3 * time.Second

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("bootstrap already started")

// Config wires a Machine to its collaborators.
type Config struct {
	Source      release.Source
	Store       *resource.Store
	Loader      loader.Loader
	Loop        *eventloop.Loop
	Clock       clock.Clock
	NoticeDelay time.Duration
	Logger      *zap.Logger
	Metrics     *monitoring.Metrics
}

// Machine sequences fetch, extract, materialize, load and activate, and
// reports phase changes. All state is owned by the event loop; Start may
// be called from any goroutine, everything else from the loop.
type Machine struct {
	cfg    Config
	logger *zap.Logger

	phase     Phase
	started   bool
	closed    bool
	startedAt time.Time

	notice      *clock.Timer
	noticeFired bool

	phaseObservers  []func(Phase)
	noticeObservers []func()
}

// New creates a machine in FetchingBinary.
func New(cfg Config) *Machine {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.NoticeDelay <= 0 {
		cfg.NoticeDelay = DefaultNoticeDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{cfg: cfg, logger: logger, phase: FetchingBinary}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.phase }

// OnPhase registers fn to receive every phase entered, starting with
// FetchingBinary when Start runs.
func (m *Machine) OnPhase(fn func(Phase)) {
	m.phaseObservers = append(m.phaseObservers, fn)
}

// OnNotice registers fn to run when the post-load notice is due.
func (m *Machine) OnNotice(fn func()) {
	m.noticeObservers = append(m.noticeObservers, fn)
}

// Start runs the bootstrap. done is called on the loop exactly once, with
// nil after Loaded or with the first failure: *release.NetworkError,
// *bundle.MalformedBundleError or *BootstrapError.
func (m *Machine) Start(ctx context.Context, done func(error)) {
	m.cfg.Loop.Post(func() {
		if m.started {
			done(ErrAlreadyStarted)
			return
		}
		m.started = true
		m.startedAt = m.cfg.Clock.Now()
		m.enter(FetchingBinary)
		m.fetch(ctx, done)
	})
}

func (m *Machine) fetch(ctx context.Context, done func(error)) {
	eventloop.Await(m.cfg.Loop, func() ([]byte, error) {
		return m.cfg.Source.Bundle(ctx)
	}, func(data []byte, err error) {
		if err != nil {
			m.fail(done, "fetch", err)
			return
		}
		if id, err := bundle.Fingerprint(data); err == nil {
			m.logger.Info("release bundle received",
				zap.String("bundle", id.String()),
				zap.Int("bytes", len(data)))
		}
		m.extract(ctx, data, done)
	})
}

func (m *Machine) extract(ctx context.Context, data []byte, done func(error)) {
	eventloop.Await(m.cfg.Loop, func() (bundle.Assets, error) {
		return bundle.Extract(data)
	}, func(assets bundle.Assets, err error) {
		if err != nil {
			m.fail(done, "extract", err)
			return
		}

		script := m.cfg.Store.Materialize([]byte(assets.Script), resource.MediaJavaScript)
		payload := m.cfg.Store.Materialize(assets.Payload, resource.MediaWasm)

		if err := m.advance(LoadingApp); err != nil {
			m.fail(done, "advance", err)
			return
		}
		m.activate(ctx, script, payload, done)
	})
}

func (m *Machine) activate(ctx context.Context, script, payload resource.Handle, done func(error)) {
	revoke := func() {
		m.cfg.Store.Revoke(script.Ref)
		m.cfg.Store.Revoke(payload.Ref)
	}

	entry, err := m.cfg.Loader.Load(ctx, script)
	if err != nil {
		revoke()
		m.fail(done, "load", &BootstrapError{Err: err})
		return
	}
	act := entry.Activate(ctx, payload)

	eventloop.Await(m.cfg.Loop, func() (struct{}, error) {
		return struct{}{}, act.Wait(ctx)
	}, func(_ struct{}, err error) {
		revoke()

		outcome, err := Reconcile(err)
		if err != nil {
			m.fail(done, "activate", err)
			return
		}
		if outcome == Benign {
			m.logger.Debug("activation ended with control-flow signal")
		}
		if err := m.advance(Loaded); err != nil {
			m.fail(done, "advance", err)
			return
		}

		m.cfg.Metrics.RecordBootstrap("loaded", m.cfg.Clock.Now().Sub(m.startedAt))
		m.armNotice()
		done(nil)
	})
}

// advance moves to next, which must directly follow the current phase.
func (m *Machine) advance(next Phase) error {
	if next != m.phase+1 {
		return fmt.Errorf("invalid phase transition %s -> %s", m.phase, next)
	}
	m.phase = next
	m.enter(next)
	return nil
}

func (m *Machine) enter(p Phase) {
	m.logger.Info("bootstrap phase", zap.Stringer("phase", p))
	m.cfg.Metrics.RecordPhase(p.String())
	for _, fn := range m.phaseObservers {
		fn(p)
	}
}

func (m *Machine) fail(done func(error), step string, err error) {
	m.logger.Error("bootstrap failed",
		zap.String("step", step),
		zap.Stringer("phase", m.phase),
		zap.Error(err))
	m.cfg.Metrics.RecordBootstrap("failed", m.cfg.Clock.Now().Sub(m.startedAt))
	done(err)
}

func (m *Machine) armNotice() {
	if m.closed {
		return
	}
	m.notice = m.cfg.Clock.AfterFunc(m.cfg.NoticeDelay, func() {
		m.cfg.Loop.Post(m.fireNotice)
	})
}

func (m *Machine) fireNotice() {
	if m.closed || m.noticeFired {
		return
	}
	m.noticeFired = true
	for _, fn := range m.noticeObservers {
		fn()
	}
}

// Close cancels a pending notice. Bootstrap steps still in flight are
// abandoned, not aborted.
func (m *Machine) Close() {
	m.closed = true
	if m.notice != nil {
		m.notice.Stop()
	}
}
