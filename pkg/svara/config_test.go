package svara

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/svara-ai/svara/pkg/rtc/livekit"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "svara.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
livekit:
  url: wss://example.livekit.cloud
  api_key: key123
  api_secret: secret456
  room: lobby
vendors:
  stt:
    provider: deepgram
    settings:
      api_key: ${TEST_DEEPGRAM_KEY}
  tts:
    provider: elevenlabs
    settings:
      api_key: el-key
  llm:
    provider: openai
    settings:
      api_key: oa-key
`

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, validConfig)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.LiveKit.Identity != "svara-agent" {
		t.Fatalf("expected default identity, got %q", cfg.LiveKit.Identity)
	}
	if cfg.Agent.PersonaName != "Alex" || cfg.Agent.Organization != "Summit Credit Services" {
		t.Fatalf("unexpected agent defaults: %+v", cfg.Agent)
	}
	if cfg.Agent.BalanceCents != 45000 {
		t.Fatalf("expected default balance, got %d", cfg.Agent.BalanceCents)
	}
	if cfg.Vendors.VAD.Provider != "energy" {
		t.Fatalf("expected default vad provider, got %q", cfg.Vendors.VAD.Provider)
	}
	// Barge-in must not be delayed out of the box: an onset early in the
	// greeting still has to truncate synthesis.
	if cfg.Turn.MinBargeInMS != 0 {
		t.Fatalf("expected barge-in guard off by default, got %d", cfg.Turn.MinBargeInMS)
	}
	if cfg.Turn.SpeakTimeoutMS != 30000 {
		t.Fatalf("unexpected turn defaults: %+v", cfg.Turn)
	}
	if !cfg.Privacy.RedactPII {
		t.Fatalf("expected redaction on by default")
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("TEST_DEEPGRAM_KEY", "dg-secret")
	path := writeConfig(t, validConfig)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if got := cfg.Vendors.STT.Settings["api_key"]; got != "dg-secret" {
		t.Fatalf("expected env expansion in settings, got %v", got)
	}
}

func TestLoadConfigMissingLiveKit(t *testing.T) {
	path := writeConfig(t, `
livekit:
  url: wss://example.livekit.cloud
vendors:
  stt: {provider: deepgram}
  tts: {provider: elevenlabs}
  llm: {provider: openai}
`)
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "livekit.api_key") {
		t.Fatalf("expected livekit.api_key error, got %v", err)
	}
}

func TestLoadConfigMissingVendor(t *testing.T) {
	path := writeConfig(t, `
livekit:
  url: wss://example.livekit.cloud
  api_key: key123
  api_secret: secret456
vendors:
  stt: {provider: deepgram}
  llm: {provider: openai}
`)
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "vendors.tts.provider") {
		t.Fatalf("expected vendors.tts.provider error, got %v", err)
	}
}

func TestValidateRejectsNonPositiveBalance(t *testing.T) {
	cfg := Config{
		LiveKit: livekit.Config{
			URL:       "wss://example.livekit.cloud",
			APIKey:    "key123",
			APISecret: "secret456",
		},
		Vendors: VendorsConfig{
			VAD: VendorConfig{Provider: "energy"},
			STT: VendorConfig{Provider: "deepgram"},
			TTS: VendorConfig{Provider: "elevenlabs"},
			LLM: VendorConfig{Provider: "openai"},
		},
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "balance_cents") {
		t.Fatalf("expected balance_cents error, got %v", err)
	}
}
