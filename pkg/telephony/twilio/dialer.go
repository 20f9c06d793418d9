package twilio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

type Config struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	// CallerID is the Twilio-owned number calls are placed from.
	CallerID string `mapstructure:"caller_id"`
	// TwimlURL is the call behavior after answer. The default keeps the
	// line open long enough to exercise a session.
	TwimlURL string `mapstructure:"twiml_url"`
}

func (c Config) withDefaults() Config {
	if c.TwimlURL == "" {
		c.TwimlURL = "http://demo.twilio.com/docs/voice.xml"
	}
	return c
}

// DialOptions carries optional outbound dial settings.
type DialOptions struct {
	// SendDigits is a DTMF sequence played after connect, used when the
	// trunk fronts rooms behind an IVR menu.
	SendDigits string
}

type callCreator interface {
	CreateCall(params *api.CreateCallParams) (*api.ApiV2010Call, error)
}

// Dialer places outbound PSTN calls at the SIP trunk fronting the rooms,
// producing a telephony participant on demand. Used by the test-call
// script, never by the session path.
type Dialer struct {
	cfg    Config
	client callCreator
}

func NewDialer(cfg Config) *Dialer {
	return &Dialer{cfg: cfg.withDefaults()}
}

// Dial rings the trunk number from the configured caller ID.
func (d *Dialer) Dial(ctx context.Context, trunkNumber string) (string, error) {
	return d.DialWithOptions(ctx, trunkNumber, DialOptions{})
}

func (d *Dialer) DialWithOptions(ctx context.Context, trunkNumber string, opts DialOptions) (string, error) {
	_ = ctx
	if trunkNumber == "" {
		return "", errors.New("trunk number required")
	}
	if d.cfg.AccountSID == "" || d.cfg.AuthToken == "" {
		return "", errors.New("missing twilio credentials")
	}
	if d.cfg.CallerID == "" {
		return "", errors.New("caller_id required")
	}
	client := d.client
	if client == nil {
		rest := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: d.cfg.AccountSID,
			Password: d.cfg.AuthToken,
		})
		client = rest.Api
	}
	params := &api.CreateCallParams{}
	params.SetTo(trunkNumber)
	params.SetFrom(d.cfg.CallerID)
	params.SetUrl(d.cfg.TwimlURL)
	if strings.TrimSpace(opts.SendDigits) != "" {
		params.SetSendDigits(opts.SendDigits)
	}
	resp, err := client.CreateCall(params)
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Sid == nil {
		return "", fmt.Errorf("missing call sid")
	}
	return *resp.Sid, nil
}
