package svara

import (
	"context"
	"log/slog"
	"time"

	"github.com/svara-ai/svara/pkg/errorsx"
	"github.com/svara-ai/svara/pkg/logging"
	"github.com/svara-ai/svara/pkg/observers"
	"github.com/svara-ai/svara/pkg/redact"
	"github.com/svara-ai/svara/pkg/rtc"
	"github.com/svara-ai/svara/pkg/rtc/livekit"
	"github.com/svara-ai/svara/pkg/runner"
)

// Engine is the worker: configuration, observability, transport, and one
// orchestrated session per run. Session failures are contained; only
// configuration problems abort the worker.
type Engine struct {
	cfg    Config
	orch   *Orchestrator
	logger *slog.Logger

	sessionCancel context.CancelFunc
}

func NewEngine(cfg Config) (*Engine, error) {
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	redact.SetEnabled(cfg.Privacy.RedactPII)

	obs := observers.NewMultiObserver(
		observers.NewLoggerObserver(slog.Default()),
	)
	orch, err := NewOrchestrator(cfg, DefaultRegistry(), obs)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:    cfg,
		orch:   orch,
		logger: logging.NewComponentLogger(slog.Default(), "engine"),
	}, nil
}

// Serve runs one session and contains its failure. The worker survives any
// per-session error; the error is returned for observability only.
func (e *Engine) Serve(ctx context.Context, sess rtc.Session) error {
	err := e.orch.HandleSession(ctx, sess)
	if err != nil && ctx.Err() == nil {
		e.logger.Error("session_failed",
			slog.String("room", sess.Name()),
			slog.String("reason", string(errorsx.Reason(err))),
			slog.Any("error", err))
	}
	return err
}

// Run connects to the configured room and serves a single session under
// the worker lifecycle. It blocks until ctx is cancelled or the session
// finishes.
func (e *Engine) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.sessionCancel = cancel

	sess := livekit.NewSession(e.cfg.LiveKit)
	if err := sess.Connect(runCtx); err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	done := make(chan struct{})
	lifecycle := runner.NewLifecycleRunner(drainFunc(func() error {
		cancel()
		<-done
		return nil
	}), runner.Hooks{
		OnStart: func() {
			go func() {
				defer close(done)
				defer cancel()
				_ = e.Serve(runCtx, sess)
			}()
		},
	}, 10*time.Second)

	return lifecycle.Run(runCtx)
}

type drainFunc func() error

func (f drainFunc) Drain() error { return f() }

// Doctor runs the connectivity preflight against the configured deployment.
func (e *Engine) Doctor(ctx context.Context) (livekit.DoctorReport, error) {
	return livekit.Doctor(ctx, e.cfg.LiveKit)
}
