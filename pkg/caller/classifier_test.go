package caller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/svara-ai/svara/pkg/rtc"
	rtcmock "github.com/svara-ai/svara/pkg/rtc/mock"
)

func TestClassifySIPParticipantWithNumber(t *testing.T) {
	sess := rtcmock.NewSession(rtcmock.SessionConfig{
		Participant: &rtcmock.Participant{
			ID:    "sip-abc",
			PKind: rtc.ParticipantSIP,
			Attrs: map[string]string{rtc.AttrPhoneNumber: "+15551234567"},
		},
	})
	profile, p, err := NewClassifier(nil).Classify(context.Background(), sess)
	if err != nil {
		t.Fatalf("classify error: %v", err)
	}
	if p.Identity() != "sip-abc" {
		t.Fatalf("unexpected participant: %s", p.Identity())
	}
	if profile.Channel() != ChannelPhone {
		t.Fatalf("expected phone channel, got %s", profile.Channel())
	}
	number, ok := profile.PhoneNumber()
	if !ok || number != "+15551234567" {
		t.Fatalf("expected exact number, got %q ok=%v", number, ok)
	}
	if profile.DisplayIdentity() != "Phone Caller (+15551234567)" {
		t.Fatalf("unexpected identity label: %q", profile.DisplayIdentity())
	}
}

func TestClassifySIPParticipantWithoutNumber(t *testing.T) {
	sess := rtcmock.NewSession(rtcmock.SessionConfig{
		Participant: &rtcmock.Participant{ID: "sip-xyz", PKind: rtc.ParticipantSIP},
	})
	profile, _, err := NewClassifier(nil).Classify(context.Background(), sess)
	if err != nil {
		t.Fatalf("classify error: %v", err)
	}
	if profile.Channel() != ChannelPhone {
		t.Fatalf("expected phone channel, got %s", profile.Channel())
	}
	if _, ok := profile.PhoneNumber(); ok {
		t.Fatalf("expected no phone number")
	}
	if profile.DisplayIdentity() != "Phone Caller (unknown)" {
		t.Fatalf("unexpected identity label: %q", profile.DisplayIdentity())
	}
}

func TestClassifyWebParticipant(t *testing.T) {
	sess := rtcmock.NewSession(rtcmock.SessionConfig{
		Participant: &rtcmock.Participant{ID: "guest-42", PKind: rtc.ParticipantStandard},
	})
	profile, _, err := NewClassifier(nil).Classify(context.Background(), sess)
	if err != nil {
		t.Fatalf("classify error: %v", err)
	}
	if profile.Channel() != ChannelWeb {
		t.Fatalf("expected web channel, got %s", profile.Channel())
	}
	if profile.DisplayIdentity() != "guest-42" {
		t.Fatalf("identity must be unchanged, got %q", profile.DisplayIdentity())
	}
	if _, ok := profile.PhoneNumber(); ok {
		t.Fatalf("web caller must not carry a phone number")
	}
}

func TestClassifyHonorsCancellation(t *testing.T) {
	sess := rtcmock.NewSession(rtcmock.SessionConfig{
		Participant: &rtcmock.Participant{ID: "late", PKind: rtc.ParticipantStandard},
		JoinDelay:   time.Hour,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := NewClassifier(nil).Classify(ctx, sess)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestClassifyWaitsForDelayedJoin(t *testing.T) {
	sess := rtcmock.NewSession(rtcmock.SessionConfig{
		Participant: &rtcmock.Participant{ID: "slow-guest", PKind: rtc.ParticipantStandard},
		JoinDelay:   10 * time.Millisecond,
	})
	profile, _, err := NewClassifier(nil).Classify(context.Background(), sess)
	if err != nil {
		t.Fatalf("classify error: %v", err)
	}
	if profile.DisplayIdentity() != "slow-guest" {
		t.Fatalf("unexpected identity: %q", profile.DisplayIdentity())
	}
}
