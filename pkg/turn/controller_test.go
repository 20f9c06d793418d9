package turn

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/svara-ai/svara/pkg/errorsx"
)

// fakeSpeaker simulates a running pipeline: speech completes after
// synthesisTime unless cancelled, and caller speech can be scheduled to
// begin mid-utterance.
type fakeSpeaker struct {
	mu            sync.Mutex
	synthesisTime time.Duration
	speakErr      error

	spokenText  string
	cancelledAt time.Time

	speechDone   chan struct{}
	callerSpeech chan struct{}
	truncate     chan struct{}
}

func newFakeSpeaker(synthesisTime time.Duration) *fakeSpeaker {
	return &fakeSpeaker{
		synthesisTime: synthesisTime,
		speechDone:    make(chan struct{}),
		callerSpeech:  make(chan struct{}),
		truncate:      make(chan struct{}),
	}
}

func (f *fakeSpeaker) Speak(text string) error {
	f.mu.Lock()
	f.spokenText = text
	f.mu.Unlock()
	if f.speakErr != nil {
		return f.speakErr
	}
	go func() {
		timer := time.NewTimer(f.synthesisTime)
		defer timer.Stop()
		select {
		case <-timer.C:
			close(f.speechDone)
		case <-f.truncate:
		}
	}()
	return nil
}

func (f *fakeSpeaker) CancelSpeech() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelledAt.IsZero() {
		f.cancelledAt = time.Now()
		close(f.truncate)
	}
}

func (f *fakeSpeaker) SpeechDone() <-chan struct{}   { return f.speechDone }
func (f *fakeSpeaker) CallerSpeech() <-chan struct{} { return f.callerSpeech }

func (f *fakeSpeaker) speechStartsIn(d time.Duration) {
	go func() {
		time.Sleep(d)
		close(f.callerSpeech)
	}()
}

func (f *fakeSpeaker) cancelled() (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelledAt, !f.cancelledAt.IsZero()
}

func TestControllerCompletion(t *testing.T) {
	speaker := newFakeSpeaker(20 * time.Millisecond)
	ctrl := NewController(speaker, Config{})

	result, err := ctrl.Speak(context.Background(), Utterance{Text: "hello there", Interruptible: true})
	if err != nil {
		t.Fatalf("speak error: %v", err)
	}
	if result != ResultCompleted {
		t.Fatalf("expected completed, got %s", result)
	}
	if speaker.spokenText != "hello there" {
		t.Fatalf("unexpected spoken text %q", speaker.spokenText)
	}
	if _, ok := speaker.cancelled(); ok {
		t.Fatalf("completed utterance must not be cancelled")
	}
	if ctrl.State() != StateReleased {
		t.Fatalf("expected RELEASED after completion, got %s", ctrl.State())
	}
}

func TestControllerInterruptionLatency(t *testing.T) {
	// Caller speech begins 100ms into a 3s utterance. Synthesis must be
	// truncated shortly after, well under the 250ms bound.
	speaker := newFakeSpeaker(3 * time.Second)
	ctrl := NewController(speaker, Config{})
	speaker.speechStartsIn(100 * time.Millisecond)

	var observed []State
	var mu sync.Mutex
	ctrl.fsm.AddListener(stateFunc(func(event StateChange) {
		mu.Lock()
		observed = append(observed, event.ToState)
		mu.Unlock()
	}))

	speechAt := time.Now().Add(100 * time.Millisecond)
	result, err := ctrl.Speak(context.Background(), Utterance{Text: "long greeting", Interruptible: true})
	if err != nil {
		t.Fatalf("speak error: %v", err)
	}
	if result != ResultInterrupted {
		t.Fatalf("expected interrupted, got %s", result)
	}
	cancelledAt, ok := speaker.cancelled()
	if !ok {
		t.Fatalf("synthesis was not truncated")
	}
	if latency := cancelledAt.Sub(speechAt); latency > 250*time.Millisecond {
		t.Fatalf("truncation latency %v exceeds 250ms bound", latency)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateSpeaking, StateInterrupted, StateReleased}
	if len(observed) != len(want) {
		t.Fatalf("expected states %v, observed %v", want, observed)
	}
	for i := range want {
		if observed[i] != want[i] {
			t.Fatalf("expected states %v, observed %v", want, observed)
		}
	}
}

func TestControllerNonInterruptible(t *testing.T) {
	speaker := newFakeSpeaker(50 * time.Millisecond)
	ctrl := NewController(speaker, Config{})
	speaker.speechStartsIn(5 * time.Millisecond)

	result, err := ctrl.Speak(context.Background(), Utterance{Text: "listen fully", Interruptible: false})
	if err != nil {
		t.Fatalf("speak error: %v", err)
	}
	if result != ResultCompleted {
		t.Fatalf("non-interruptible utterance must complete, got %s", result)
	}
	if _, ok := speaker.cancelled(); ok {
		t.Fatalf("non-interruptible utterance must not be truncated by caller speech")
	}
}

func TestControllerSpeakError(t *testing.T) {
	speaker := newFakeSpeaker(time.Second)
	speaker.speakErr = errors.New("tts unavailable")
	ctrl := NewController(speaker, Config{})

	_, err := ctrl.Speak(context.Background(), Utterance{Text: "hi", Interruptible: true})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errorsx.HasReason(err, errorsx.ReasonSpeakSend) {
		t.Fatalf("expected reason %s, got %v", errorsx.ReasonSpeakSend, err)
	}
	if ctrl.State() != StateReleased {
		t.Fatalf("expected RELEASED after speak failure, got %s", ctrl.State())
	}
}

func TestControllerTimeout(t *testing.T) {
	speaker := newFakeSpeaker(time.Hour)
	ctrl := NewController(speaker, Config{SpeakTimeout: 20 * time.Millisecond})

	_, err := ctrl.Speak(context.Background(), Utterance{Text: "hi", Interruptible: true})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if !errorsx.HasReason(err, errorsx.ReasonSpeakTimeout) {
		t.Fatalf("expected reason %s, got %v", errorsx.ReasonSpeakTimeout, err)
	}
	if _, ok := speaker.cancelled(); !ok {
		t.Fatalf("timed-out utterance must be truncated")
	}
}

func TestControllerCancellation(t *testing.T) {
	speaker := newFakeSpeaker(time.Hour)
	ctrl := NewController(speaker, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := ctrl.Speak(ctx, Utterance{Text: "hi", Interruptible: true})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline, got %v", err)
	}
	if _, ok := speaker.cancelled(); !ok {
		t.Fatalf("cancelled utterance must be truncated")
	}
	if ctrl.State() != StateReleased {
		t.Fatalf("expected RELEASED after cancellation, got %s", ctrl.State())
	}
}

type stateFunc func(event StateChange)

func (f stateFunc) OnStateChange(event StateChange) { f(event) }
