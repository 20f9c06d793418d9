package svara

import (
	"fmt"
	"strings"

	"github.com/svara-ai/svara/pkg/adapters/stt"
	"github.com/svara-ai/svara/pkg/adapters/tts"
	"github.com/svara-ai/svara/pkg/adapters/vad"
	"github.com/svara-ai/svara/pkg/configutil"
	"github.com/svara-ai/svara/pkg/llm"
	"github.com/svara-ai/svara/pkg/providers/deepgram"
	"github.com/svara-ai/svara/pkg/providers/elevenlabs"
	"github.com/svara-ai/svara/pkg/providers/energy"
	"github.com/svara-ai/svara/pkg/providers/mock"
	"github.com/svara-ai/svara/pkg/providers/openai"
)

type VADFactory func(cfg Config, streamID string) (vad.Detector, error)
type STTFactory func(cfg Config, streamID, traceID string) (stt.StreamingSTT, error)
type TTSFactory func(cfg Config, streamID string) (tts.StreamingTTS, error)
type LLMFactory func(cfg Config) (llm.Adapter, error)

type ProviderRegistry struct {
	vad map[string]VADFactory
	stt map[string]STTFactory
	tts map[string]TTSFactory
	llm map[string]LLMFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		vad: make(map[string]VADFactory),
		stt: make(map[string]STTFactory),
		tts: make(map[string]TTSFactory),
		llm: make(map[string]LLMFactory),
	}
}

func (r *ProviderRegistry) RegisterVAD(name string, factory VADFactory) {
	r.vad[normalizeName(name)] = factory
}

func (r *ProviderRegistry) RegisterSTT(name string, factory STTFactory) {
	r.stt[normalizeName(name)] = factory
}

func (r *ProviderRegistry) RegisterTTS(name string, factory TTSFactory) {
	r.tts[normalizeName(name)] = factory
}

func (r *ProviderRegistry) RegisterLLM(name string, factory LLMFactory) {
	r.llm[normalizeName(name)] = factory
}

func (r *ProviderRegistry) BuildVAD(provider string, cfg Config, streamID string) (vad.Detector, error) {
	fn := r.vad[normalizeName(provider)]
	if fn == nil {
		return nil, fmt.Errorf("vad provider not registered: %s", provider)
	}
	return fn(cfg, streamID)
}

func (r *ProviderRegistry) BuildSTT(provider string, cfg Config, streamID, traceID string) (stt.StreamingSTT, error) {
	fn := r.stt[normalizeName(provider)]
	if fn == nil {
		return nil, fmt.Errorf("stt provider not registered: %s", provider)
	}
	return fn(cfg, streamID, traceID)
}

func (r *ProviderRegistry) BuildTTS(provider string, cfg Config, streamID string) (tts.StreamingTTS, error) {
	fn := r.tts[normalizeName(provider)]
	if fn == nil {
		return nil, fmt.Errorf("tts provider not registered: %s", provider)
	}
	return fn(cfg, streamID)
}

func (r *ProviderRegistry) BuildLLM(provider string, cfg Config) (llm.Adapter, error) {
	fn := r.llm[normalizeName(provider)]
	if fn == nil {
		return nil, fmt.Errorf("llm provider not registered: %s", provider)
	}
	return fn(cfg)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DefaultRegistry returns the registry with every built-in provider
// registered under its config name.
func DefaultRegistry() *ProviderRegistry {
	r := NewProviderRegistry()

	r.RegisterVAD("energy", func(cfg Config, streamID string) (vad.Detector, error) {
		var settings struct {
			Threshold        float64 `mapstructure:"threshold"`
			ActivationFrames int     `mapstructure:"activation_frames"`
			HangoverFrames   int     `mapstructure:"hangover_frames"`
		}
		if err := configutil.DecodeSettings(cfg.Vendors.VAD.Settings, &settings); err != nil {
			return nil, err
		}
		return energy.New(energy.Config{
			StreamID:         streamID,
			Threshold:        settings.Threshold,
			ActivationFrames: settings.ActivationFrames,
			HangoverFrames:   settings.HangoverFrames,
		}), nil
	})
	r.RegisterVAD("mock", func(cfg Config, streamID string) (vad.Detector, error) {
		return mock.NewVAD(streamID), nil
	})

	r.RegisterSTT("deepgram", func(cfg Config, streamID, traceID string) (stt.StreamingSTT, error) {
		var settings struct {
			APIKey         string `mapstructure:"api_key"`
			Model          string `mapstructure:"model"`
			Language       string `mapstructure:"language"`
			SampleRate     int    `mapstructure:"sample_rate"`
			Encoding       string `mapstructure:"encoding"`
			Interim        bool   `mapstructure:"interim"`
			VADEvents      bool   `mapstructure:"vad_events"`
			UtteranceEndMS int    `mapstructure:"utterance_end_ms"`
		}
		if err := configutil.DecodeSettings(cfg.Vendors.STT.Settings, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.APIKey, "vendors.stt.settings.api_key"); err != nil {
			return nil, err
		}
		return deepgram.New(deepgram.Config{
			APIKey:         settings.APIKey,
			Model:          settings.Model,
			Language:       settings.Language,
			SampleRate:     settings.SampleRate,
			Encoding:       settings.Encoding,
			Interim:        settings.Interim,
			VADEvents:      settings.VADEvents,
			StreamID:       streamID,
			TraceID:        traceID,
			UtteranceEndMS: settings.UtteranceEndMS,
		}), nil
	})
	r.RegisterSTT("mock", func(cfg Config, streamID, traceID string) (stt.StreamingSTT, error) {
		return mock.NewSTT(streamID), nil
	})

	r.RegisterTTS("elevenlabs", func(cfg Config, streamID string) (tts.StreamingTTS, error) {
		var settings struct {
			APIKey       string `mapstructure:"api_key"`
			VoiceID      string `mapstructure:"voice_id"`
			ModelID      string `mapstructure:"model_id"`
			OutputFormat string `mapstructure:"output_format"`
			SampleRate   int    `mapstructure:"sample_rate"`
		}
		if err := configutil.DecodeSettings(cfg.Vendors.TTS.Settings, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.APIKey, "vendors.tts.settings.api_key"); err != nil {
			return nil, err
		}
		return elevenlabs.New(elevenlabs.Config{
			APIKey:       settings.APIKey,
			VoiceID:      settings.VoiceID,
			ModelID:      settings.ModelID,
			OutputFormat: settings.OutputFormat,
			SampleRate:   settings.SampleRate,
			StreamID:     streamID,
		}), nil
	})
	r.RegisterTTS("openai", func(cfg Config, streamID string) (tts.StreamingTTS, error) {
		var settings struct {
			APIKey     string `mapstructure:"api_key"`
			Model      string `mapstructure:"model"`
			Voice      string `mapstructure:"voice"`
			SampleRate int    `mapstructure:"sample_rate"`
		}
		if err := configutil.DecodeSettings(cfg.Vendors.TTS.Settings, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.APIKey, "vendors.tts.settings.api_key"); err != nil {
			return nil, err
		}
		return openai.NewTTS(openai.TTSConfig{
			APIKey:     settings.APIKey,
			Model:      settings.Model,
			Voice:      settings.Voice,
			SampleRate: settings.SampleRate,
			StreamID:   streamID,
		}), nil
	})
	r.RegisterTTS("mock", func(cfg Config, streamID string) (tts.StreamingTTS, error) {
		return mock.NewTTS(streamID), nil
	})

	r.RegisterLLM("openai", func(cfg Config) (llm.Adapter, error) {
		var settings struct {
			APIKey  string `mapstructure:"api_key"`
			Model   string `mapstructure:"model"`
			BaseURL string `mapstructure:"base_url"`
		}
		if err := configutil.DecodeSettings(cfg.Vendors.LLM.Settings, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.APIKey, "vendors.llm.settings.api_key"); err != nil {
			return nil, err
		}
		adapter := openai.NewAdapter(settings.APIKey, settings.Model)
		if settings.BaseURL != "" {
			adapter.BaseURL = settings.BaseURL
		}
		return adapter, nil
	})
	r.RegisterLLM("mock", func(cfg Config) (llm.Adapter, error) {
		return mock.NewLLM(), nil
	})

	return r
}
