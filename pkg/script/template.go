package script

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/svara-ai/svara/pkg/caller"
)

// Config enumerates the behavioral inputs of the instruction script. These
// are configuration, never literals baked into rendering logic.
type Config struct {
	PersonaName  string `mapstructure:"persona_name"`
	Organization string `mapstructure:"organization"`
	BalanceCents int64  `mapstructure:"balance_cents"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.PersonaName) == "" {
		return fmt.Errorf("agent.persona_name is required")
	}
	if strings.TrimSpace(c.Organization) == "" {
		return fmt.Errorf("agent.organization is required")
	}
	if c.BalanceCents <= 0 {
		return fmt.Errorf("agent.balance_cents must be positive")
	}
	return nil
}

// slots is the data bound to the instruction template. Channel-specific
// phrasing is injected here structurally; later stages never string-match
// the rendered output.
type slots struct {
	Persona        string
	Organization   string
	ChannelClause  string
	ShortSentences bool
	Goals          []string
}

const instructionTemplate = `You are {{.Persona}}, a professional debt collection agent for '{{.Organization}}'.

Context:
- You are speaking with a user via {{.ChannelClause}}.
{{- if .ShortSentences}}
- The caller is on the phone, so keep sentences shorter.
{{- end}}

Your goals, in order:
{{- range .Goals}}
{{.}}
{{- end}}
`

// Builder renders agent instructions from a caller profile. Rendering is a
// pure function: no I/O, no hidden state, byte-identical output for equal
// inputs.
type Builder struct {
	cfg  Config
	tmpl *template.Template
}

func NewBuilder(cfg Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tmpl, err := template.New("instructions").Parse(instructionTemplate)
	if err != nil {
		return nil, err
	}
	return &Builder{cfg: cfg, tmpl: tmpl}, nil
}

func (b *Builder) Render(profile caller.Profile) string {
	var sb strings.Builder
	// The template is static and the slot data is fully deterministic, so
	// Execute cannot fail here.
	_ = b.tmpl.Execute(&sb, b.bind(profile))
	return sb.String()
}

func (b *Builder) bind(profile caller.Profile) slots {
	s := slots{
		Persona:      b.cfg.PersonaName,
		Organization: b.cfg.Organization,
	}
	switch profile.Channel() {
	case caller.ChannelPhone:
		s.ShortSentences = true
		if number, ok := profile.PhoneNumber(); ok {
			s.ChannelClause = "phone " + number
		} else {
			s.ChannelClause = "phone (number unknown)"
		}
	default:
		s.ChannelClause = "web browser"
	}
	s.Goals = []string{
		`1. Verify identity. Ask: "Am I speaking with the account holder associated with this number?"`,
		fmt.Sprintf("2. Inform the caller of the %s outstanding balance.", formatBalance(b.cfg.BalanceCents)),
		"3. Ask for payment.",
	}
	return s
}

func formatBalance(cents int64) string {
	if cents%100 == 0 {
		return fmt.Sprintf("$%d", cents/100)
	}
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
