package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/svara-ai/svara/pkg/adapters/tts"
	"github.com/svara-ai/svara/pkg/frames"
	"github.com/svara-ai/svara/pkg/resilience"
)

type TTSConfig struct {
	APIKey     string
	Model      string
	Voice      string
	BaseURL    string
	SampleRate int
	StreamID   string
}

// TTS synthesizes speech through the /audio/speech endpoint. Responses
// stream raw PCM; each request ends with an audio_ready control frame.
// There is no persistent connection, so Start is a config check only.
type TTS struct {
	cfg    TTSConfig
	out    chan frames.Frame
	client *http.Client
	logger *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	abort  context.CancelFunc
}

func NewTTS(cfg TTSConfig) *TTS {
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 24000
	}
	return &TTS{
		cfg:    cfg,
		out:    make(chan frames.Frame, 256),
		client: &http.Client{Timeout: 60 * time.Second},
		logger: slog.Default().With(slog.String("component", "openai_tts")),
	}
}

func (t *TTS) Name() string { return "openai_tts" }

func (t *TTS) Start(ctx context.Context) error {
	if t.cfg.APIKey == "" {
		return errors.New("missing openai api key")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	t.mu.Lock()
	t.ctx, t.cancel = context.WithCancel(ctx)
	t.mu.Unlock()
	return nil
}

func (t *TTS) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.abort != nil {
		t.abort()
		t.abort = nil
	}
	if t.cancel != nil {
		t.cancel()
	}
	return nil
}

func (t *TTS) SendText(text string) error {
	t.mu.Lock()
	if t.ctx == nil {
		t.mu.Unlock()
		return errors.New("not started")
	}
	if t.abort != nil {
		t.abort()
	}
	reqCtx, abort := context.WithCancel(t.ctx)
	t.abort = abort
	t.mu.Unlock()

	go t.synthesize(reqCtx, text)
	return nil
}

func (t *TTS) Flush() {
	t.mu.Lock()
	if t.abort != nil {
		t.abort()
		t.abort = nil
	}
	t.mu.Unlock()

drainLoop:
	for {
		select {
		case <-t.out:
		default:
			break drainLoop
		}
	}
}

func (t *TTS) Results() <-chan frames.Frame { return t.out }

func (t *TTS) synthesize(ctx context.Context, text string) {
	body, err := json.Marshal(map[string]any{
		"model":           t.cfg.Model,
		"voice":           t.cfg.Voice,
		"input":           text,
		"response_format": "pcm",
	})
	if err != nil {
		t.logger.Error("tts request encode error", slog.Any("error", err))
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		t.logger.Error("tts request build error", slog.Any("error", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			t.logger.Error("tts request error", slog.Any("error", err))
		}
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		msg, _ := io.ReadAll(resp.Body)
		t.logger.Error("tts rate limited", slog.Any("error", resilience.RateLimitError{Provider: "openai", Message: string(msg)}))
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		t.logger.Error("tts request failed",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(msg)))
		return
	}

	meta := map[string]string{
		frames.MetaSource:   "openai",
		frames.MetaEncoding: "pcm_s16le",
	}
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			f := frames.NewAudioFrameFromPool(t.cfg.StreamID, time.Now().UnixNano(),
				buf[:n], t.cfg.SampleRate, 1, meta)
			select {
			case t.out <- f:
			case <-ctx.Done():
				frames.ReleaseAudioFrame(f)
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ctx.Err() == nil {
				t.logger.Error("tts stream read error", slog.Any("error", err))
			}
			return
		}
	}

	done := frames.NewControlFrame(t.cfg.StreamID, time.Now().UnixNano(),
		frames.ControlAudioReady, map[string]string{frames.MetaSource: "openai"})
	select {
	case t.out <- done:
	case <-ctx.Done():
	}
}

var _ tts.StreamingTTS = (*TTS)(nil)
