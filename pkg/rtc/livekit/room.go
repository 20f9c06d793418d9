package livekit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	webrtcmedia "github.com/pion/webrtc/v4/pkg/media"

	"github.com/svara-ai/svara/pkg/errorsx"
	"github.com/svara-ai/svara/pkg/frames"
	"github.com/svara-ai/svara/pkg/logging"
	"github.com/svara-ai/svara/pkg/rtc"
)

type Config struct {
	URL       string `mapstructure:"url"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Room      string `mapstructure:"room"`
	Identity  string `mapstructure:"identity"`
}

func (c Config) withDefaults() Config {
	if c.Identity == "" {
		c.Identity = "svara-agent"
	}
	return c
}

// Session is the LiveKit-backed rtc.Session. Subscription policy is
// audio-only: auto-subscribe is disabled and only audio publications of the
// bound participant are subscribed.
type Session struct {
	cfg    Config
	logger *slog.Logger

	room    *lksdk.Room
	audioIn chan frames.Frame
	pts     *frames.PTSGen

	mu      sync.Mutex
	track   *lksdk.LocalSampleTrack
	bound   string
	joined  chan *lksdk.RemoteParticipant
	closed  bool
	cancel  context.CancelFunc
	readCtx context.Context
}

func NewSession(cfg Config) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(slog.Default(), "livekit"),
		audioIn: make(chan frames.Frame, 512),
		pts:     frames.NewPTSGen(),
		joined:  make(chan *lksdk.RemoteParticipant, 1),
	}
}

// Connect joins the configured room as an agent participant.
func (s *Session) Connect(ctx context.Context) error {
	if s.cfg.URL == "" || s.cfg.APIKey == "" || s.cfg.APISecret == "" {
		return errorsx.Wrap(errors.New("missing livekit url/api_key/api_secret"), errorsx.ReasonConfig)
	}
	s.readCtx, s.cancel = context.WithCancel(ctx)

	cb := &lksdk.RoomCallback{
		OnParticipantConnected: s.onParticipantConnected,
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackPublished:  s.onTrackPublished,
			OnTrackSubscribed: s.onTrackSubscribed,
		},
	}
	room, err := lksdk.ConnectToRoom(s.cfg.URL, lksdk.ConnectInfo{
		APIKey:              s.cfg.APIKey,
		APISecret:           s.cfg.APISecret,
		RoomName:            s.cfg.Room,
		ParticipantIdentity: s.cfg.Identity,
		ParticipantKind:     lksdk.ParticipantAgent,
	}, cb, lksdk.WithAutoSubscribe(false))
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonRoomConnect)
	}
	s.room = room
	s.logger.Info("room_connected",
		slog.String("room", s.cfg.Room),
		slog.String("identity", s.cfg.Identity))
	return nil
}

func (s *Session) Name() string { return s.cfg.Room }

func (s *Session) WaitForParticipant(ctx context.Context) (rtc.Participant, error) {
	if s.room == nil {
		return nil, errorsx.Wrap(errors.New("not connected"), errorsx.ReasonRoomConnect)
	}
	for _, p := range s.room.GetRemoteParticipants() {
		return s.wrap(p), nil
	}
	select {
	case p := <-s.joined:
		return s.wrap(p), nil
	case <-ctx.Done():
		return nil, errorsx.Wrap(ctx.Err(), errorsx.ReasonParticipantWait)
	}
}

func (s *Session) SubscribeAudio(p rtc.Participant) error {
	if s.room == nil {
		return errors.New("not connected")
	}
	s.mu.Lock()
	s.bound = p.Identity()
	s.mu.Unlock()
	for _, rp := range s.room.GetRemoteParticipants() {
		if rp.Identity() != p.Identity() {
			continue
		}
		for _, pub := range rp.TrackPublications() {
			remote, ok := pub.(*lksdk.RemoteTrackPublication)
			if !ok || remote.Kind() != lksdk.TrackKindAudio {
				continue
			}
			if err := remote.SetSubscribed(true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Session) AudioIn() <-chan frames.Frame { return s.audioIn }

func (s *Session) PublishAudio(f frames.AudioFrame) error {
	track, err := s.localTrack()
	if err != nil {
		return err
	}
	dur := frameDuration(f)
	return track.WriteSample(webrtcmedia.Sample{
		Data:     f.RawPayload(),
		Duration: dur,
	}, nil)
}

func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	if s.room != nil {
		s.room.Disconnect()
	}
	return nil
}

func (s *Session) onParticipantConnected(rp *lksdk.RemoteParticipant) {
	s.logger.Info("participant_connected",
		slog.String("room", s.cfg.Room),
		slog.String("identity", rp.Identity()))
	select {
	case s.joined <- rp:
	default:
		// First joiner wins; later joins are observed but not classified.
		s.logger.Warn("participant_ignored", slog.String("identity", rp.Identity()))
	}
}

func (s *Session) onTrackPublished(pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	s.mu.Lock()
	bound := s.bound
	s.mu.Unlock()
	if bound == "" || rp.Identity() != bound {
		return
	}
	if pub.Kind() != lksdk.TrackKindAudio {
		return
	}
	if err := pub.SetSubscribed(true); err != nil {
		s.logger.Warn("subscribe_failed",
			slog.String("identity", rp.Identity()),
			slog.String("error", err.Error()))
	}
}

func (s *Session) onTrackSubscribed(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	if track.Kind() != webrtc.RTPCodecTypeAudio {
		return
	}
	s.logger.Info("audio_track_subscribed",
		slog.String("identity", rp.Identity()),
		slog.String("track", pub.SID()))
	go s.readTrack(track, rp)
}

func (s *Session) readTrack(track *webrtc.TrackRemote, rp *lksdk.RemoteParticipant) {
	rate := int(track.Codec().ClockRate)
	ch := int(track.Codec().Channels)
	if ch == 0 {
		ch = 1
	}
	for {
		if s.readCtx != nil && s.readCtx.Err() != nil {
			return
		}
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		s.deliverPacket(pkt, rp.Identity(), rate, ch)
	}
}

// deliverPacket hands an RTP payload to the session's audio channel as a
// pooled frame. Drops rather than blocks when the consumer falls behind.
func (s *Session) deliverPacket(pkt *rtp.Packet, identity string, rate, ch int) {
	if pkt == nil || len(pkt.Payload) == 0 {
		return
	}
	meta := map[string]string{
		frames.MetaRoom:        s.cfg.Room,
		frames.MetaParticipant: identity,
		frames.MetaSource:      "livekit",
	}
	f := frames.NewAudioFrameFromPool(s.cfg.Room, s.pts.Next(s.cfg.Room), pkt.Payload, rate, ch, meta)
	select {
	case s.audioIn <- f:
	default:
		frames.ReleaseAudioFrame(f)
	}
}

func (s *Session) localTrack() (*lksdk.LocalSampleTrack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.track != nil {
		return s.track, nil
	}
	if s.room == nil {
		return nil, errors.New("not connected")
	}
	track, err := lksdk.NewLocalSampleTrack(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: 48000,
		Channels:  1,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.room.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{
		Name:   "agent-voice",
		Source: livekit.TrackSource_MICROPHONE,
	}); err != nil {
		return nil, err
	}
	s.track = track
	return track, nil
}

func (s *Session) wrap(rp *lksdk.RemoteParticipant) rtc.Participant {
	return &participant{rp: rp}
}

type participant struct {
	rp *lksdk.RemoteParticipant
}

func (p *participant) Identity() string { return p.rp.Identity() }

func (p *participant) Attributes() map[string]string { return p.rp.Attributes() }

func (p *participant) Kind() rtc.ParticipantKind {
	switch p.rp.Kind() {
	case lksdk.ParticipantSIP:
		return rtc.ParticipantSIP
	case lksdk.ParticipantAgent:
		return rtc.ParticipantAgent
	case lksdk.ParticipantIngress:
		return rtc.ParticipantIngress
	case lksdk.ParticipantEgress:
		return rtc.ParticipantEgress
	}
	// Older SIP bridges report kind through attributes only.
	if p.rp.Attributes()["lk.participant.kind"] == "sip" {
		return rtc.ParticipantSIP
	}
	return rtc.ParticipantStandard
}

func frameDuration(f frames.AudioFrame) time.Duration {
	rate := f.Rate()
	if rate <= 0 {
		return 20 * time.Millisecond
	}
	samples := len(f.RawPayload()) / 2 // 16-bit PCM
	if f.Channels() > 1 {
		samples /= f.Channels()
	}
	if samples == 0 {
		return 20 * time.Millisecond
	}
	return time.Duration(samples) * time.Second / time.Duration(rate)
}
