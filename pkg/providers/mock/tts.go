package mock

import (
	"context"
	"sync"
	"time"

	"github.com/svara-ai/svara/pkg/frames"
)

// TTS is a scriptable text-to-speech adapter for tests. Each SendText
// synthesizes ChunkCount audio frames spaced ChunkInterval apart, then an
// audio_ready control frame. Flush truncates the in-flight synthesis.
type TTS struct {
	ChunkCount    int
	ChunkInterval time.Duration

	mu       sync.Mutex
	results  chan frames.Frame
	ptsGen   *frames.PTSGen
	streamID string
	sent     []string
	flushed  int
	abort    chan struct{}
	closed   bool
}

func NewTTS(streamID string) *TTS {
	return &TTS{
		ChunkCount:    3,
		ChunkInterval: time.Millisecond,
		results:       make(chan frames.Frame, 64),
		ptsGen:        frames.NewPTSGen(),
		streamID:      streamID,
	}
}

func (t *TTS) Name() string { return "mock-tts" }

func (t *TTS) Start(ctx context.Context) error { return nil }

func (t *TTS) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		if t.abort != nil {
			close(t.abort)
			t.abort = nil
		}
		close(t.results)
	}
	return nil
}

func (t *TTS) SendText(text string) error {
	t.mu.Lock()
	t.sent = append(t.sent, text)
	abort := make(chan struct{})
	t.abort = abort
	chunks := t.ChunkCount
	interval := t.ChunkInterval
	t.mu.Unlock()

	go func() {
		for i := 0; i < chunks; i++ {
			select {
			case <-abort:
				return
			case <-time.After(interval):
			}
			t.push(frames.NewAudioFrame(t.streamID, t.ptsGen.Next(t.streamID), make([]byte, 320), 16000, 1, nil))
		}
		select {
		case <-abort:
			return
		default:
		}
		t.push(frames.NewControlFrame(t.streamID, t.ptsGen.Next(t.streamID), frames.ControlAudioReady, nil))
	}()
	return nil
}

func (t *TTS) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flushed++
	if t.abort != nil {
		close(t.abort)
		t.abort = nil
	}
}

func (t *TTS) Results() <-chan frames.Frame { return t.results }

// Sent returns the synthesized texts in order.
func (t *TTS) Sent() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sent...)
}

// Flushes returns how many times synthesis was truncated.
func (t *TTS) Flushes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushed
}

func (t *TTS) push(f frames.Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	select {
	case t.results <- f:
	default:
	}
}
