package svara

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	svaraagent "github.com/svara-ai/svara/pkg/agent"
	"github.com/svara-ai/svara/pkg/caller"
	"github.com/svara-ai/svara/pkg/errorsx"
	"github.com/svara-ai/svara/pkg/logging"
	"github.com/svara-ai/svara/pkg/metrics"
	"github.com/svara-ai/svara/pkg/rtc"
	"github.com/svara-ai/svara/pkg/script"
	"github.com/svara-ai/svara/pkg/turn"
)

// Orchestrator runs exactly one session: classify the caller, render the
// instruction script, bind and start the pipeline, issue the greeting, then
// hold the session open until cancellation. The ordering is strict and
// every suspension point honors ctx.
type Orchestrator struct {
	cfg        Config
	registry   *ProviderRegistry
	classifier *caller.Classifier
	builder    *script.Builder
	obs        metrics.Observer
	logger     *slog.Logger
}

func NewOrchestrator(cfg Config, registry *ProviderRegistry, obs metrics.Observer) (*Orchestrator, error) {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if obs == nil {
		obs = metrics.NoopObserver{}
	}
	builder, err := script.NewBuilder(script.Config{
		PersonaName:  cfg.Agent.PersonaName,
		Organization: cfg.Agent.Organization,
		BalanceCents: cfg.Agent.BalanceCents,
	})
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonConfig)
	}
	return &Orchestrator{
		cfg:        cfg,
		registry:   registry,
		classifier: caller.NewClassifier(obs),
		builder:    builder,
		obs:        obs,
		logger:     logging.NewComponentLogger(slog.Default(), "orchestrator"),
	}, nil
}

// HandleSession drives one session end to end. A bind failure tears the
// session down before any utterance; an interrupted greeting is a normal
// outcome. The call returns when ctx is cancelled or a session-fatal error
// occurs.
func (o *Orchestrator) HandleSession(ctx context.Context, sess rtc.Session) error {
	traceID := uuid.NewString()
	logger := o.logger.With(
		slog.String("room", sess.Name()),
		slog.String("trace_id", traceID))
	logger.Info("session_started")

	profile, participant, err := o.classifier.Classify(ctx, sess)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonParticipantWait)
	}

	instructions := o.builder.Render(profile)

	capabilities, err := o.buildCapabilities(sess.Name(), traceID)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonPipelineBind)
	}

	a, err := svaraagent.Bind(svaraagent.Instructions{
		Script:       instructions,
		Caps:         capabilities,
		BargeInGuard: time.Duration(o.cfg.Turn.MinBargeInMS) * time.Millisecond,
	}, o.obs)
	if err != nil {
		logger.Error("pipeline_bind_failed", slog.Any("error", err))
		closeCapabilities(capabilities)
		return err
	}

	if err := a.Start(ctx, sess, participant); err != nil {
		logger.Error("agent_start_failed", slog.Any("error", err))
		_ = a.Close()
		return err
	}
	defer func() { _ = a.Close() }()
	logger.Info("pipeline_bound", slog.String("channel", profile.Channel().String()))

	controller := turn.NewController(a, turn.Config{
		SpeakTimeout: time.Duration(o.cfg.Turn.SpeakTimeoutMS) * time.Millisecond,
	})
	greeting := fmt.Sprintf("Hello, this is %s from %s. This call may be recorded.",
		o.cfg.Agent.PersonaName, o.cfg.Agent.Organization)

	result, err := controller.Speak(ctx, turn.Utterance{Text: greeting, Interruptible: true})
	if err != nil {
		return err
	}
	logger.Info("greeting_resolved", slog.String("result", result.String()))
	o.obs.RecordEvent(metrics.MetricsEvent{
		Name: "greeting_resolved",
		Time: time.Now(),
		Tags: map[string]string{"result": result.String()},
	})

	// The conversation loop inside the agent owns all further turns.
	<-ctx.Done()
	logger.Info("session_ended")
	return nil
}

func (o *Orchestrator) buildCapabilities(streamID, traceID string) (svaraagent.Capabilities, error) {
	var caps svaraagent.Capabilities
	var err error

	caps.VAD, err = o.registry.BuildVAD(o.cfg.Vendors.VAD.Provider, o.cfg, streamID)
	if err != nil {
		return svaraagent.Capabilities{}, err
	}
	caps.STT, err = o.registry.BuildSTT(o.cfg.Vendors.STT.Provider, o.cfg, streamID, traceID)
	if err != nil {
		closeCapabilities(caps)
		return svaraagent.Capabilities{}, err
	}
	caps.TTS, err = o.registry.BuildTTS(o.cfg.Vendors.TTS.Provider, o.cfg, streamID)
	if err != nil {
		closeCapabilities(caps)
		return svaraagent.Capabilities{}, err
	}
	caps.LLM, err = o.registry.BuildLLM(o.cfg.Vendors.LLM.Provider, o.cfg)
	if err != nil {
		closeCapabilities(caps)
		return svaraagent.Capabilities{}, err
	}
	return caps, nil
}

// closeCapabilities releases whatever subset was constructed. Partially
// built pipelines never leak adapter connections.
func closeCapabilities(caps svaraagent.Capabilities) {
	if caps.VAD != nil {
		_ = caps.VAD.Close()
	}
	if caps.STT != nil {
		_ = caps.STT.Close()
	}
	if caps.TTS != nil {
		_ = caps.TTS.Close()
	}
}
