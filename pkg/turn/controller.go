package turn

import (
	"context"
	"log/slog"
	"time"

	"github.com/svara-ai/svara/pkg/errorsx"
	"github.com/svara-ai/svara/pkg/logging"
)

// Speaker is the slice of the running agent the controller drives: issue an
// utterance, observe its completion, observe caller speech, truncate output.
type Speaker interface {
	// Speak starts synthesis of text. It must not block until playback ends.
	Speak(text string) error
	// CancelSpeech truncates synthesis output immediately.
	CancelSpeech()
	// SpeechDone signals that the current utterance finished playing.
	SpeechDone() <-chan struct{}
	// CallerSpeech signals that the caller started speaking.
	CallerSpeech() <-chan struct{}
}

// Utterance is one scripted system utterance.
type Utterance struct {
	Text          string
	Interruptible bool
}

type Result int

const (
	ResultCompleted Result = iota
	ResultInterrupted
)

func (r Result) String() string {
	if r == ResultInterrupted {
		return "interrupted"
	}
	return "completed"
}

type Config struct {
	// SpeakTimeout bounds how long a single utterance may stay in flight.
	// Zero disables the bound.
	SpeakTimeout time.Duration
}

// Controller manages the scripted opening utterance and its interruption
// contract. After the utterance resolves the controller releases the turn;
// subsequent turns are owned by the pipeline's own loop.
type Controller struct {
	speaker Speaker
	fsm     *Machine
	cfg     Config
	logger  *slog.Logger
}

func NewController(speaker Speaker, cfg Config) *Controller {
	return &Controller{
		speaker: speaker,
		fsm:     NewMachine(),
		cfg:     cfg,
		logger:  logging.NewComponentLogger(slog.Default(), "turn"),
	}
}

// State exposes the FSM state for observability and tests.
func (c *Controller) State() State {
	return c.fsm.State()
}

// Speak issues the utterance and resolves it to Completed or Interrupted.
// Caller speech always wins the race against system speech: the utterance
// is truncated as soon as the caller is heard. Cancellation through ctx
// releases the turn and truncates any pending synthesis.
func (c *Controller) Speak(ctx context.Context, u Utterance) (Result, error) {
	if err := c.fsm.Transition(StateSpeaking, "utterance issued"); err != nil {
		return ResultCompleted, err
	}
	c.logger.Info("greeting_issued",
		slog.Bool("interruptible", u.Interruptible),
		slog.Int("chars", len(u.Text)))
	started := time.Now()

	if err := c.speaker.Speak(u.Text); err != nil {
		_ = c.fsm.Transition(StateReleased, "speak failed")
		return ResultCompleted, errorsx.Wrap(err, errorsx.ReasonSpeakSend)
	}

	callerSpeech := c.speaker.CallerSpeech()
	if !u.Interruptible {
		callerSpeech = nil
	}

	var timeout <-chan time.Time
	if c.cfg.SpeakTimeout > 0 {
		timer := time.NewTimer(c.cfg.SpeakTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-c.speaker.SpeechDone():
		_ = c.fsm.Transition(StateCompleted, "utterance complete")
		c.logger.Info("greeting_completed", slog.Duration("spoke_for", time.Since(started)))
		c.release("utterance complete")
		return ResultCompleted, nil

	case <-callerSpeech:
		c.speaker.CancelSpeech()
		_ = c.fsm.Transition(StateInterrupted, "caller speech")
		c.logger.Info("greeting_interrupted", slog.String("reason", "caller_speech"))
		c.release("caller took the turn")
		return ResultInterrupted, nil

	case <-timeout:
		c.speaker.CancelSpeech()
		_ = c.fsm.Transition(StateReleased, "speak timeout")
		return ResultCompleted, errorsx.Wrap(context.DeadlineExceeded, errorsx.ReasonSpeakTimeout)

	case <-ctx.Done():
		c.speaker.CancelSpeech()
		_ = c.fsm.Transition(StateReleased, "cancelled")
		return ResultCompleted, ctx.Err()
	}
}

func (c *Controller) release(reason string) {
	_ = c.fsm.Transition(StateReleased, reason)
}
