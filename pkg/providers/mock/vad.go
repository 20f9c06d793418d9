package mock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/svara-ai/svara/pkg/frames"
)

// VAD is a scriptable voice-activity detector for tests. Speech boundaries
// are emitted on demand, or automatically after SpeechStartDelay once the
// first audio frame arrives.
type VAD struct {
	SpeechStartDelay time.Duration

	mu        sync.Mutex
	events    chan frames.Frame
	ptsGen    *frames.PTSGen
	streamID  string
	processed atomic.Int64
	armed     bool
	closed    bool
}

func NewVAD(streamID string) *VAD {
	return &VAD{
		events:   make(chan frames.Frame, 16),
		ptsGen:   frames.NewPTSGen(),
		streamID: streamID,
	}
}

func (v *VAD) Name() string { return "mock-vad" }

func (v *VAD) Start(ctx context.Context) error { return nil }

func (v *VAD) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.closed {
		v.closed = true
		close(v.events)
	}
	return nil
}

func (v *VAD) Process(frame frames.AudioFrame) error {
	v.processed.Add(1)
	if v.SpeechStartDelay <= 0 {
		return nil
	}
	v.mu.Lock()
	if v.armed {
		v.mu.Unlock()
		return nil
	}
	v.armed = true
	v.mu.Unlock()
	go func() {
		time.Sleep(v.SpeechStartDelay)
		v.EmitSpeechStarted()
	}()
	return nil
}

func (v *VAD) Events() <-chan frames.Frame { return v.events }

// Processed returns how many audio frames were fed in.
func (v *VAD) Processed() int64 { return v.processed.Load() }

func (v *VAD) EmitSpeechStarted() { v.emit(frames.ControlSpeechStarted) }
func (v *VAD) EmitSpeechStopped() { v.emit(frames.ControlSpeechStopped) }

func (v *VAD) emit(code frames.ControlCode) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	select {
	case v.events <- frames.NewControlFrame(v.streamID, v.ptsGen.Next(v.streamID), code, nil):
	default:
	}
}
