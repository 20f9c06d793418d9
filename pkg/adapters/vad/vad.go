package vad

import (
	"context"

	"github.com/svara-ai/svara/pkg/frames"
)

// Detector defines the contract for any voice-activity detector.
// Implementations consume audio and emit speech_started/speech_stopped
// control frames on Events.
type Detector interface {
	// Name returns detector name for logging/metrics.
	Name() string
	// Start initializes the detector.
	Start(ctx context.Context) error
	// Close releases detector resources.
	Close() error
	// Process feeds one audio frame into the detector.
	Process(frame frames.AudioFrame) error
	// Events returns a channel of speech boundary control frames.
	Events() <-chan frames.Frame
}

// Config contains vendor-agnostic detector configuration.
type Config struct {
	StreamID   string
	SampleRate int
}
