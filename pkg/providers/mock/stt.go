package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/svara-ai/svara/pkg/frames"
)

// STT is a scriptable speech-to-text adapter for tests. Transcripts are
// emitted on demand via EmitTranscript.
type STT struct {
	mu       sync.Mutex
	results  chan frames.Frame
	ptsGen   *frames.PTSGen
	streamID string
	audioIn  atomic.Int64
	closed   bool
}

func NewSTT(streamID string) *STT {
	return &STT{
		results:  make(chan frames.Frame, 16),
		ptsGen:   frames.NewPTSGen(),
		streamID: streamID,
	}
}

func (s *STT) Name() string { return "mock-stt" }

func (s *STT) Start(ctx context.Context) error { return nil }

func (s *STT) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.results)
	}
	return nil
}

func (s *STT) SendAudio(frame frames.AudioFrame) error {
	s.audioIn.Add(1)
	return nil
}

func (s *STT) Results() <-chan frames.Frame { return s.results }

// AudioFrames returns how many audio frames were sent in.
func (s *STT) AudioFrames() int64 { return s.audioIn.Load() }

// EmitSpeechStarted pushes a native speech-onset event, the way a vendor
// with built-in VAD surfaces one on its results stream.
func (s *STT) EmitSpeechStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	meta := map[string]string{frames.MetaSource: "native_vad"}
	select {
	case s.results <- frames.NewControlFrame(s.streamID, s.ptsGen.Next(s.streamID), frames.ControlSpeechStarted, meta):
	default:
	}
}

// EmitTranscript pushes one transcript frame to consumers.
func (s *STT) EmitTranscript(text string, final bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	meta := map[string]string{frames.MetaIsFinal: "false"}
	if final {
		meta[frames.MetaIsFinal] = "true"
	}
	select {
	case s.results <- frames.NewTextFrame(s.streamID, s.ptsGen.Next(s.streamID), text, meta):
	default:
	}
}
