package mock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/svara-ai/svara/pkg/frames"
	"github.com/svara-ai/svara/pkg/rtc"
)

type Participant struct {
	ID    string
	PKind rtc.ParticipantKind
	Attrs map[string]string
}

func (p *Participant) Identity() string { return p.ID }

func (p *Participant) Kind() rtc.ParticipantKind { return p.PKind }

func (p *Participant) Attributes() map[string]string {
	if p.Attrs == nil {
		return map[string]string{}
	}
	return p.Attrs
}

var _ rtc.Participant = (*Participant)(nil)

type SessionConfig struct {
	Room        string
	Participant *Participant
	// JoinDelay defers the participant join; zero means already joined.
	JoinDelay time.Duration
}

// Session is a scripted in-memory rtc.Session for tests.
type Session struct {
	cfg     SessionConfig
	audioIn chan frames.Frame

	mu         sync.Mutex
	published  []frames.AudioFrame
	subscribed []string
	closed     bool
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.Room == "" {
		cfg.Room = "mock-room"
	}
	return &Session{
		cfg:     cfg,
		audioIn: make(chan frames.Frame, 64),
	}
}

func (s *Session) Name() string { return s.cfg.Room }

func (s *Session) WaitForParticipant(ctx context.Context) (rtc.Participant, error) {
	if s.cfg.Participant == nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.cfg.JoinDelay <= 0 {
		return s.cfg.Participant, nil
	}
	timer := time.NewTimer(s.cfg.JoinDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return s.cfg.Participant, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Session) SubscribeAudio(p rtc.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("session closed")
	}
	s.subscribed = append(s.subscribed, p.Identity())
	return nil
}

func (s *Session) AudioIn() <-chan frames.Frame { return s.audioIn }

func (s *Session) PublishAudio(f frames.AudioFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("session closed")
	}
	s.published = append(s.published, f)
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// PushAudio feeds caller audio into the session, as the transport would.
func (s *Session) PushAudio(f frames.Frame) {
	select {
	case s.audioIn <- f:
	default:
	}
}

func (s *Session) Published() []frames.AudioFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]frames.AudioFrame, len(s.published))
	copy(out, s.published)
	return out
}

func (s *Session) PublishedBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, f := range s.published {
		total += len(f.RawPayload())
	}
	return total
}

func (s *Session) Subscribed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.subscribed))
	copy(out, s.subscribed)
	return out
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var _ rtc.Session = (*Session)(nil)
