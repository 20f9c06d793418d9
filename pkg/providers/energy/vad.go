package energy

import (
	"context"
	"encoding/binary"
	"log/slog"
	"math"
	"sync"

	"github.com/svara-ai/svara/pkg/adapters/vad"
	"github.com/svara-ai/svara/pkg/frames"
	"github.com/svara-ai/svara/pkg/logging"
)

type Config struct {
	StreamID string
	// Threshold is the RMS level (0..1) above which a frame counts as speech.
	Threshold float64
	// ActivationFrames is how many consecutive speech frames open an onset.
	ActivationFrames int
	// HangoverFrames is how many consecutive silent frames close an utterance.
	HangoverFrames int
}

// Detector is an RMS energy voice-activity detector over 16-bit PCM. It
// emits speech_started on a sustained energy rise and speech_stopped after
// the hangover window. Frames with other encodings are counted as silence.
type Detector struct {
	cfg    Config
	events chan frames.Frame
	ptsGen *frames.PTSGen
	logger *slog.Logger

	mu       sync.Mutex
	speaking bool
	active   int
	silent   int
	closed   bool
}

func New(cfg Config) *Detector {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.015
	}
	if cfg.ActivationFrames <= 0 {
		cfg.ActivationFrames = 2
	}
	if cfg.HangoverFrames <= 0 {
		cfg.HangoverFrames = 15
	}
	return &Detector{
		cfg:    cfg,
		events: make(chan frames.Frame, 32),
		ptsGen: frames.NewPTSGen(),
		logger: logging.NewComponentLogger(slog.Default(), "energy_vad"),
	}
}

func (d *Detector) Name() string { return "energy_vad" }

func (d *Detector) Start(ctx context.Context) error { return nil }

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	return nil
}

func (d *Detector) Process(frame frames.AudioFrame) error {
	level := rms(frame.RawPayload())

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}

	if level >= d.cfg.Threshold {
		d.active++
		d.silent = 0
		if !d.speaking && d.active >= d.cfg.ActivationFrames {
			d.speaking = true
			d.emitLocked(frames.ControlSpeechStarted)
			d.logger.Debug("speech_onset", slog.Float64("rms", level))
		}
	} else {
		d.silent++
		d.active = 0
		if d.speaking && d.silent >= d.cfg.HangoverFrames {
			d.speaking = false
			d.emitLocked(frames.ControlSpeechStopped)
			d.logger.Debug("speech_offset")
		}
	}
	return nil
}

func (d *Detector) Events() <-chan frames.Frame { return d.events }

func (d *Detector) emitLocked(code frames.ControlCode) {
	f := frames.NewControlFrame(d.cfg.StreamID, d.ptsGen.Next(d.cfg.StreamID), code,
		map[string]string{frames.MetaSource: "vad"})
	select {
	case d.events <- f:
	default:
		d.logger.Warn("vad event channel full")
	}
}

// rms computes the normalized root mean square of little-endian 16-bit PCM.
func rms(pcm []byte) float64 {
	if len(pcm) < 2 {
		return 0
	}
	var sum float64
	n := len(pcm) / 2
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		v := float64(s) / math.MaxInt16
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}

var _ vad.Detector = (*Detector)(nil)
