package caller

import (
	"context"
	"log/slog"
	"time"

	"github.com/svara-ai/svara/pkg/logging"
	"github.com/svara-ai/svara/pkg/metrics"
	"github.com/svara-ai/svara/pkg/redact"
	"github.com/svara-ai/svara/pkg/rtc"
)

// Classifier resolves the first joined participant of a session into a
// Profile. The wait has no internal timeout; cancellation is the caller's
// responsibility through ctx.
type Classifier struct {
	logger *slog.Logger
	obs    metrics.Observer
}

func NewClassifier(obs metrics.Observer) *Classifier {
	if obs == nil {
		obs = metrics.NoopObserver{}
	}
	return &Classifier{
		logger: logging.NewComponentLogger(slog.Default(), "classifier"),
		obs:    obs,
	}
}

// Classify blocks until a participant joins, then produces exactly one
// Profile. The participant is returned alongside so the binder can attach
// to its audio.
func (c *Classifier) Classify(ctx context.Context, sess rtc.Session) (Profile, rtc.Participant, error) {
	p, err := sess.WaitForParticipant(ctx)
	if err != nil {
		return Profile{}, nil, err
	}
	profile := FromParticipant(p)

	masked := profile.DisplayIdentity()
	if number, ok := profile.PhoneNumber(); ok {
		masked = redact.Phone(number)
	}
	c.logger.Info("caller_classified",
		slog.String("room", sess.Name()),
		slog.String("channel", profile.Channel().String()),
		slog.String("identity", redact.Text(masked)),
		slog.String("participant_kind", p.Kind().String()))

	c.obs.RecordEvent(metrics.MetricsEvent{
		Name: "caller_classified",
		Time: time.Now(),
		Tags: map[string]string{
			"room":    sess.Name(),
			"channel": profile.Channel().String(),
		},
	})
	return profile, p, nil
}

// FromParticipant maps a participant's kind tag and attributes to a Profile.
func FromParticipant(p rtc.Participant) Profile {
	if p.Kind() == rtc.ParticipantSIP {
		return PhoneCaller(p.Attributes()[rtc.AttrPhoneNumber])
	}
	return WebCaller(p.Identity())
}
