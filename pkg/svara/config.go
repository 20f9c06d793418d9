package svara

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/svara-ai/svara/pkg/rtc/livekit"
)

type Config struct {
	LiveKit     livekit.Config `mapstructure:"livekit"`
	Agent       AgentConfig    `mapstructure:"agent"`
	Vendors     VendorsConfig  `mapstructure:"vendors"`
	Turn        TurnConfig     `mapstructure:"turn"`
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	LogFormat   string         `mapstructure:"log_format"`
	Privacy     PrivacyConfig  `mapstructure:"privacy"`
}

// AgentConfig carries the collection scenario inputs. These feed the
// instruction script; logic never hard-codes them.
type AgentConfig struct {
	PersonaName  string `mapstructure:"persona_name"`
	Organization string `mapstructure:"organization"`
	BalanceCents int64  `mapstructure:"balance_cents"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type VendorsConfig struct {
	VAD VendorConfig `mapstructure:"vad"`
	STT VendorConfig `mapstructure:"stt"`
	TTS VendorConfig `mapstructure:"tts"`
	LLM VendorConfig `mapstructure:"llm"`
}

type TurnConfig struct {
	MinBargeInMS   int `mapstructure:"min_barge_in_ms"`
	SpeakTimeoutMS int `mapstructure:"speak_timeout_ms"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("livekit.identity", "svara-agent")
	v.SetDefault("agent.persona_name", "Alex")
	v.SetDefault("agent.organization", "Summit Credit Services")
	v.SetDefault("agent.balance_cents", 45000)
	v.SetDefault("vendors.vad.provider", "energy")
	// Caller speech wins unconditionally unless an operator opts into an
	// echo guard. Any non-zero value delays barge-in by that much.
	v.SetDefault("turn.min_barge_in_ms", 0)
	v.SetDefault("turn.speak_timeout_ms", 30000)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("privacy.redact_pii", true)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.LiveKit.URL) == "" {
		return fmt.Errorf("livekit.url is required")
	}
	if strings.TrimSpace(c.LiveKit.APIKey) == "" {
		return fmt.Errorf("livekit.api_key is required")
	}
	if strings.TrimSpace(c.LiveKit.APISecret) == "" {
		return fmt.Errorf("livekit.api_secret is required")
	}
	for name, vendor := range map[string]VendorConfig{
		"vad": c.Vendors.VAD,
		"stt": c.Vendors.STT,
		"tts": c.Vendors.TTS,
		"llm": c.Vendors.LLM,
	} {
		if strings.TrimSpace(vendor.Provider) == "" {
			return fmt.Errorf("vendors.%s.provider is required", name)
		}
	}
	if c.Agent.BalanceCents <= 0 {
		return fmt.Errorf("agent.balance_cents must be positive")
	}
	return nil
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Vendors.VAD.Settings = expandSettings(cfg.Vendors.VAD.Settings)
	cfg.Vendors.STT.Settings = expandSettings(cfg.Vendors.STT.Settings)
	cfg.Vendors.TTS.Settings = expandSettings(cfg.Vendors.TTS.Settings)
	cfg.Vendors.LLM.Settings = expandSettings(cfg.Vendors.LLM.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = expandAny(v)
		}
		return out
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandValue(v.Index(i))
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String && v.Type().Elem().Kind() == reflect.String {
			for _, key := range v.MapKeys() {
				val := v.MapIndex(key)
				expanded := os.ExpandEnv(val.String())
				v.SetMapIndex(key, reflect.ValueOf(expanded))
			}
		}
	}
}
