package script

import (
	"strings"
	"testing"

	"github.com/svara-ai/svara/pkg/caller"
)

func testConfig() Config {
	return Config{
		PersonaName:  "Alex",
		Organization: "Summit Credit Services",
		BalanceCents: 45000,
	}
}

func TestRenderPhoneCaller(t *testing.T) {
	b, err := NewBuilder(testConfig())
	if err != nil {
		t.Fatalf("builder error: %v", err)
	}
	out := b.Render(caller.PhoneCaller("+15551234567"))
	if !strings.Contains(out, "phone +15551234567") {
		t.Fatalf("expected phone clause, got:\n%s", out)
	}
	if !strings.Contains(out, "keep sentences shorter") {
		t.Fatalf("expected shorter-sentences directive, got:\n%s", out)
	}
	if !strings.Contains(out, "$450 outstanding balance") {
		t.Fatalf("expected balance goal, got:\n%s", out)
	}
	if !strings.Contains(out, "Summit Credit Services") {
		t.Fatalf("expected organization, got:\n%s", out)
	}
}

func TestRenderWebCaller(t *testing.T) {
	b, err := NewBuilder(testConfig())
	if err != nil {
		t.Fatalf("builder error: %v", err)
	}
	out := b.Render(caller.WebCaller("guest-42"))
	if !strings.Contains(out, "web browser") {
		t.Fatalf("expected web clause, got:\n%s", out)
	}
	if strings.Contains(out, "phone") {
		t.Fatalf("web rendering must not mention phone, got:\n%s", out)
	}
	if strings.Contains(out, "keep sentences shorter") {
		t.Fatalf("shorter-sentences directive is phone-only, got:\n%s", out)
	}
}

func TestRenderPhoneCallerUnknownNumber(t *testing.T) {
	b, err := NewBuilder(testConfig())
	if err != nil {
		t.Fatalf("builder error: %v", err)
	}
	out := b.Render(caller.PhoneCaller(""))
	if !strings.Contains(out, "phone (number unknown)") {
		t.Fatalf("expected unknown-number clause, got:\n%s", out)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	b, err := NewBuilder(testConfig())
	if err != nil {
		t.Fatalf("builder error: %v", err)
	}
	profile := caller.PhoneCaller("+15551234567")
	first := b.Render(profile)
	for i := 0; i < 10; i++ {
		if got := b.Render(profile); got != first {
			t.Fatalf("render not byte-identical on call %d", i)
		}
	}
}

func TestRenderFractionalBalance(t *testing.T) {
	cfg := testConfig()
	cfg.BalanceCents = 45050
	b, err := NewBuilder(cfg)
	if err != nil {
		t.Fatalf("builder error: %v", err)
	}
	out := b.Render(caller.WebCaller("guest"))
	if !strings.Contains(out, "$450.50") {
		t.Fatalf("expected fractional balance, got:\n%s", out)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"missing persona", func(c *Config) { c.PersonaName = " " }},
		{"missing organization", func(c *Config) { c.Organization = "" }},
		{"zero balance", func(c *Config) { c.BalanceCents = 0 }},
	}
	for _, tc := range cases {
		cfg := testConfig()
		tc.mut(&cfg)
		if _, err := NewBuilder(cfg); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}
