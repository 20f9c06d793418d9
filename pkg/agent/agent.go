package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/svara-ai/svara/pkg/adapters/stt"
	"github.com/svara-ai/svara/pkg/adapters/tts"
	"github.com/svara-ai/svara/pkg/adapters/vad"
	"github.com/svara-ai/svara/pkg/errorsx"
	"github.com/svara-ai/svara/pkg/frames"
	"github.com/svara-ai/svara/pkg/llm"
	"github.com/svara-ai/svara/pkg/logging"
	"github.com/svara-ai/svara/pkg/metrics"
	"github.com/svara-ai/svara/pkg/rtc"
)

// Capabilities are the four vendor adapters a session agent is built from.
// All four are required; a partially equipped agent is never started.
type Capabilities struct {
	VAD vad.Detector
	STT stt.StreamingSTT
	LLM llm.Adapter
	TTS tts.StreamingTTS
}

// Instructions couple the rendered behavior script with the capabilities
// that will execute it.
type Instructions struct {
	Script string
	Caps   Capabilities

	// BargeInGuard ignores speech onsets within this window of an
	// utterance starting. Onsets that early are echo of the agent's own
	// opening audio, not the caller taking the turn. Zero disables it.
	BargeInGuard time.Duration
}

var errNotStarted = errors.New("agent not started")

// Agent is one bound session pipeline: caller audio in through VAD and STT,
// reasoning through the LLM, synthesized speech back out through TTS. It is
// bound once, started once, and discarded with the session.
type Agent struct {
	script string
	caps   Capabilities
	guard  time.Duration
	logger *slog.Logger
	obs    metrics.Observer

	speakingSince atomic.Int64

	started atomic.Bool
	session rtc.Session
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	historyMu sync.Mutex
	history   []map[string]any

	speechDone   chan struct{}
	callerSpeech chan struct{}
}

// Bind validates the capability set and returns an agent ready to start.
// A missing capability fails the bind before any utterance is issued.
func Bind(in Instructions, obs metrics.Observer) (*Agent, error) {
	missing := ""
	switch {
	case in.Caps.VAD == nil:
		missing = "vad"
	case in.Caps.STT == nil:
		missing = "stt"
	case in.Caps.LLM == nil:
		missing = "llm"
	case in.Caps.TTS == nil:
		missing = "tts"
	}
	if missing != "" {
		return nil, errorsx.Wrap(fmt.Errorf("capability %s is not configured", missing), errorsx.ReasonPipelineBind)
	}
	if obs == nil {
		obs = metrics.NoopObserver{}
	}
	return &Agent{
		script:       in.Script,
		caps:         in.Caps,
		guard:        in.BargeInGuard,
		logger:       logging.NewComponentLogger(slog.Default(), "agent"),
		obs:          obs,
		history:      []map[string]any{llm.SystemMessage(in.Script)},
		speechDone:   make(chan struct{}, 1),
		callerSpeech: make(chan struct{}, 1),
	}, nil
}

// Start subscribes to the participant's audio, starts every adapter, and
// launches the pipeline loops. It does not block on session activity.
func (a *Agent) Start(ctx context.Context, sess rtc.Session, p rtc.Participant) error {
	if !a.started.CompareAndSwap(false, true) {
		return errorsx.Wrap(errors.New("agent already started"), errorsx.ReasonAgentStart)
	}
	if err := sess.SubscribeAudio(p); err != nil {
		a.started.Store(false)
		return errorsx.Wrap(err, errorsx.ReasonAgentStart)
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.session = sess
	a.cancel = cancel

	for name, start := range map[string]func(context.Context) error{
		"vad": a.caps.VAD.Start,
		"stt": a.caps.STT.Start,
		"tts": a.caps.TTS.Start,
	} {
		if err := start(runCtx); err != nil {
			cancel()
			a.started.Store(false)
			return errorsx.Wrap(fmt.Errorf("start %s: %w", name, err), errorsx.ReasonAgentStart)
		}
	}

	a.wg.Add(4)
	go a.audioLoop(runCtx)
	go a.vadLoop(runCtx)
	go a.transcriptLoop(runCtx)
	go a.synthesisLoop(runCtx)

	a.logger.Info("agent_started",
		slog.String("room", sess.Name()),
		slog.String("vad", a.caps.VAD.Name()),
		slog.String("stt", a.caps.STT.Name()),
		slog.String("llm", a.caps.LLM.Name()),
		slog.String("tts", a.caps.TTS.Name()))
	return nil
}

// Close stops the loops and releases every adapter. Safe to call on an
// agent that never started.
func (a *Agent) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	var errs []error
	for _, closer := range []func() error{a.caps.VAD.Close, a.caps.STT.Close, a.caps.TTS.Close} {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	a.wg.Wait()
	return errors.Join(errs...)
}

// Speak forwards text to the TTS adapter. Completion is signalled on
// SpeechDone once the full synthesis has been published.
func (a *Agent) Speak(text string) error {
	if !a.started.Load() {
		return errorsx.Wrap(errNotStarted, errorsx.ReasonSpeakSend)
	}
	a.appendHistory(llm.AssistantMessage(text))
	a.speakingSince.Store(time.Now().UnixNano())
	return a.caps.TTS.SendText(text)
}

// withinGuard reports whether an utterance started so recently that a
// speech onset is attributed to echo rather than the caller.
func (a *Agent) withinGuard() bool {
	if a.guard <= 0 {
		return false
	}
	since := a.speakingSince.Load()
	return since != 0 && time.Since(time.Unix(0, since)) < a.guard
}

// CancelSpeech truncates any in-flight synthesis.
func (a *Agent) CancelSpeech() {
	a.caps.TTS.Flush()
}

// SpeechDone signals the completion of the most recent utterance.
func (a *Agent) SpeechDone() <-chan struct{} { return a.speechDone }

// CallerSpeech signals detected caller speech onsets.
func (a *Agent) CallerSpeech() <-chan struct{} { return a.callerSpeech }

func (a *Agent) audioLoop(ctx context.Context) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-a.session.AudioIn():
			if !ok {
				return
			}
			af, isAudio := f.(frames.AudioFrame)
			if !isAudio {
				continue
			}
			if err := a.caps.VAD.Process(af); err != nil {
				a.logger.Warn("vad_process_failed", slog.Any("error", err))
			}
			if err := a.caps.STT.SendAudio(af); err != nil {
				a.logger.Warn("stt_send_failed", slog.Any("error", err))
			}
			frames.ReleaseAudioFrame(f)
		}
	}
}

func (a *Agent) vadLoop(ctx context.Context) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-a.caps.VAD.Events():
			if !ok {
				return
			}
			cf, isControl := f.(frames.ControlFrame)
			if !isControl {
				continue
			}
			a.handleSpeechEvent(cf.Code())
		}
	}
}

// handleSpeechEvent reacts to a speech boundary regardless of which
// detector heard it: the local VAD and the STT vendor's native events
// both land here.
func (a *Agent) handleSpeechEvent(code frames.ControlCode) {
	switch code {
	case frames.ControlSpeechStarted:
		if a.withinGuard() {
			a.logger.Debug("speech_onset_ignored", slog.String("reason", "barge_in_guard"))
			return
		}
		// Caller speech always wins: truncate synthesis at the
		// source and let the turn owner observe the signal.
		a.caps.TTS.Flush()
		select {
		case a.callerSpeech <- struct{}{}:
		default:
		}
		a.obs.RecordEvent(metrics.MetricsEvent{
			Name: "caller_speech_started",
			Time: time.Now(),
		})
	case frames.ControlSpeechStopped:
		a.logger.Debug("caller_speech_stopped")
	}
}

func (a *Agent) transcriptLoop(ctx context.Context) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-a.caps.STT.Results():
			if !ok {
				return
			}
			switch fr := f.(type) {
			case frames.ControlFrame:
				a.handleSpeechEvent(fr.Code())
			case frames.TextFrame:
				if fr.Meta()[frames.MetaIsFinal] != "true" {
					continue
				}
				a.handleTranscript(ctx, fr.Text())
			}
		}
	}
}

func (a *Agent) handleTranscript(ctx context.Context, text string) {
	a.appendHistory(llm.UserMessage(text))
	resp, err := a.caps.LLM.Generate(ctx, llm.Context{Messages: a.snapshotHistory()})
	if err != nil {
		a.logger.Error("llm_generate_failed", slog.Any("error", err))
		return
	}
	a.appendHistory(llm.AssistantMessage(resp.Text))
	a.speakingSince.Store(time.Now().UnixNano())
	if err := a.caps.TTS.SendText(resp.Text); err != nil {
		a.logger.Error("tts_send_failed", slog.Any("error", err))
	}
	a.obs.RecordEvent(metrics.MetricsEvent{
		Name:  "turn_completed",
		Time:  time.Now(),
		Value: float64(resp.Usage.TotalTokens),
	})
}

func (a *Agent) synthesisLoop(ctx context.Context) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-a.caps.TTS.Results():
			if !ok {
				return
			}
			switch fr := f.(type) {
			case frames.AudioFrame:
				if err := a.session.PublishAudio(fr); err != nil {
					a.logger.Warn("publish_failed", slog.Any("error", err))
				}
			case frames.ControlFrame:
				if fr.Code() == frames.ControlAudioReady {
					select {
					case a.speechDone <- struct{}{}:
					default:
					}
				}
			}
		}
	}
}

func (a *Agent) appendHistory(msg map[string]any) {
	a.historyMu.Lock()
	defer a.historyMu.Unlock()
	a.history = append(a.history, msg)
}

func (a *Agent) snapshotHistory() []map[string]any {
	a.historyMu.Lock()
	defer a.historyMu.Unlock()
	return append([]map[string]any(nil), a.history...)
}
