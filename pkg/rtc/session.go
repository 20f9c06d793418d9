package rtc

import (
	"context"

	"github.com/svara-ai/svara/pkg/frames"
)

// AttrPhoneNumber is the participant attribute key set by the SIP bridge
// for telephony callers.
const AttrPhoneNumber = "sip.phoneNumber"

// ParticipantKind identifies the origin of a remote participant.
type ParticipantKind int

const (
	ParticipantStandard ParticipantKind = iota
	ParticipantSIP
	ParticipantAgent
	ParticipantIngress
	ParticipantEgress
)

func (k ParticipantKind) String() string {
	switch k {
	case ParticipantStandard:
		return "standard"
	case ParticipantSIP:
		return "sip"
	case ParticipantAgent:
		return "agent"
	case ParticipantIngress:
		return "ingress"
	case ParticipantEgress:
		return "egress"
	default:
		return "unknown"
	}
}

// Participant is one remote party in a session. Implementations expose a
// read-only view; the orchestrator never mutates participant state.
type Participant interface {
	Identity() string
	Kind() ParticipantKind
	Attributes() map[string]string
}

// Session is a live audio/control channel owned by the transport layer.
// The orchestrator borrows it for one invocation and never outlives it.
type Session interface {
	// Name returns the room or call identifier.
	Name() string
	// WaitForParticipant blocks until a remote participant has joined or
	// ctx is cancelled. No internal timeout is imposed.
	WaitForParticipant(ctx context.Context) (Participant, error)
	// SubscribeAudio subscribes to the participant's audio tracks only.
	// Video publications are never subscribed.
	SubscribeAudio(p Participant) error
	// AudioIn delivers subscribed participant audio.
	AudioIn() <-chan frames.Frame
	// PublishAudio writes one synthesized audio frame to the session.
	PublishAudio(f frames.AudioFrame) error
	// Close releases the underlying connection.
	Close() error
}
