package agent

import (
	"context"
	"testing"
	"time"

	"github.com/svara-ai/svara/pkg/errorsx"
	"github.com/svara-ai/svara/pkg/frames"
	providermock "github.com/svara-ai/svara/pkg/providers/mock"
	rtcmock "github.com/svara-ai/svara/pkg/rtc/mock"
)

func fullCapabilities() (Capabilities, *providermock.VAD, *providermock.STT, *providermock.LLM, *providermock.TTS) {
	v := providermock.NewVAD("s1")
	s := providermock.NewSTT("s1")
	l := providermock.NewLLM("I can help with that.")
	t := providermock.NewTTS("s1")
	return Capabilities{VAD: v, STT: s, LLM: l, TTS: t}, v, s, l, t
}

func startedAgent(t *testing.T) (*Agent, *rtcmock.Session, *providermock.VAD, *providermock.STT, *providermock.LLM, *providermock.TTS) {
	t.Helper()
	caps, v, s, l, tt := fullCapabilities()
	a, err := Bind(Instructions{Script: "You are a helpful voice agent.", Caps: caps}, nil)
	if err != nil {
		t.Fatalf("bind error: %v", err)
	}
	participant := &rtcmock.Participant{ID: "caller-1"}
	sess := rtcmock.NewSession(rtcmock.SessionConfig{Room: "room-1", Participant: participant})
	if err := a.Start(context.Background(), sess, participant); err != nil {
		t.Fatalf("start error: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a, sess, v, s, l, tt
}

func TestBindRejectsMissingCapability(t *testing.T) {
	caps, _, _, _, _ := fullCapabilities()
	caps.TTS = nil
	_, err := Bind(Instructions{Script: "script", Caps: caps}, nil)
	if err == nil {
		t.Fatalf("expected bind error for missing tts")
	}
	if !errorsx.HasReason(err, errorsx.ReasonPipelineBind) {
		t.Fatalf("expected reason %s, got %v", errorsx.ReasonPipelineBind, err)
	}
}

func TestSpeakBeforeStartFails(t *testing.T) {
	caps, _, _, _, _ := fullCapabilities()
	a, err := Bind(Instructions{Script: "script", Caps: caps}, nil)
	if err != nil {
		t.Fatalf("bind error: %v", err)
	}
	if err := a.Speak("hello"); err == nil {
		t.Fatalf("expected speak to fail before start")
	}
}

func TestStartSubscribesAudioOnly(t *testing.T) {
	_, sess, _, _, _, _ := startedAgent(t)
	subs := sess.Subscribed()
	if len(subs) != 1 || subs[0] != "caller-1" {
		t.Fatalf("expected audio subscription for caller-1, got %v", subs)
	}
}

func TestSpeakPublishesAudioThenSignalsDone(t *testing.T) {
	a, sess, _, _, _, _ := startedAgent(t)

	if err := a.Speak("hello caller"); err != nil {
		t.Fatalf("speak error: %v", err)
	}
	select {
	case <-a.SpeechDone():
	case <-time.After(time.Second):
		t.Fatalf("speech completion never signalled")
	}
	if sess.PublishedBytes() == 0 {
		t.Fatalf("no synthesized audio reached the session")
	}
}

func TestCallerSpeechTruncatesSynthesis(t *testing.T) {
	a, _, v, _, _, tt := startedAgent(t)
	tt.ChunkCount = 1000
	tt.ChunkInterval = time.Millisecond

	if err := a.Speak("a very long scripted utterance"); err != nil {
		t.Fatalf("speak error: %v", err)
	}
	v.EmitSpeechStarted()

	select {
	case <-a.CallerSpeech():
	case <-time.After(time.Second):
		t.Fatalf("caller speech never signalled")
	}
	deadline := time.Now().Add(time.Second)
	for tt.Flushes() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("synthesis was never truncated")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNativeSpeechEventTruncatesSynthesis(t *testing.T) {
	a, _, _, s, _, tt := startedAgent(t)
	tt.ChunkCount = 1000
	tt.ChunkInterval = time.Millisecond

	if err := a.Speak("a very long scripted utterance"); err != nil {
		t.Fatalf("speak error: %v", err)
	}
	s.EmitSpeechStarted()

	select {
	case <-a.CallerSpeech():
	case <-time.After(time.Second):
		t.Fatalf("vendor speech event never surfaced as caller speech")
	}
	deadline := time.Now().Add(time.Second)
	for tt.Flushes() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("synthesis was never truncated")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestEarlyOnsetTruncatesWithinBound(t *testing.T) {
	a, _, v, _, _, tt := startedAgent(t)
	tt.ChunkCount = 1000
	tt.ChunkInterval = 3 * time.Millisecond

	if err := a.Speak("a long scripted greeting the caller talks over"); err != nil {
		t.Fatalf("speak error: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	onsetAt := time.Now()
	v.EmitSpeechStarted()

	select {
	case <-a.CallerSpeech():
	case <-time.After(250 * time.Millisecond):
		t.Fatalf("caller speech 100ms into the greeting never surfaced")
	}
	for tt.Flushes() == 0 {
		if time.Since(onsetAt) > 250*time.Millisecond {
			t.Fatalf("synthesis not truncated within 250ms of onset")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestOnsetAfterGuardExpiresTruncates(t *testing.T) {
	caps, v, _, _, tt := fullCapabilities()
	a, err := Bind(Instructions{
		Script:       "script",
		Caps:         caps,
		BargeInGuard: 50 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("bind error: %v", err)
	}
	participant := &rtcmock.Participant{ID: "caller-1"}
	sess := rtcmock.NewSession(rtcmock.SessionConfig{Room: "room-1", Participant: participant})
	if err := a.Start(context.Background(), sess, participant); err != nil {
		t.Fatalf("start error: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	tt.ChunkCount = 1000
	tt.ChunkInterval = 3 * time.Millisecond
	if err := a.Speak("a long scripted greeting the caller talks over"); err != nil {
		t.Fatalf("speak error: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	v.EmitSpeechStarted()

	select {
	case <-a.CallerSpeech():
	case <-time.After(time.Second):
		t.Fatalf("onset past the guard window must take the turn")
	}
}

func TestEarlyOnsetIgnoredWithinGuard(t *testing.T) {
	caps, v, _, _, tt := fullCapabilities()
	a, err := Bind(Instructions{
		Script:       "script",
		Caps:         caps,
		BargeInGuard: time.Minute,
	}, nil)
	if err != nil {
		t.Fatalf("bind error: %v", err)
	}
	participant := &rtcmock.Participant{ID: "caller-1"}
	sess := rtcmock.NewSession(rtcmock.SessionConfig{Room: "room-1", Participant: participant})
	if err := a.Start(context.Background(), sess, participant); err != nil {
		t.Fatalf("start error: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	tt.ChunkCount = 1000
	tt.ChunkInterval = time.Millisecond
	if err := a.Speak("a very long scripted utterance"); err != nil {
		t.Fatalf("speak error: %v", err)
	}
	v.EmitSpeechStarted()

	select {
	case <-a.CallerSpeech():
		t.Fatalf("onset inside the guard window must not take the turn")
	case <-time.After(50 * time.Millisecond):
	}
	if tt.Flushes() != 0 {
		t.Fatalf("onset inside the guard window must not truncate synthesis")
	}
}

func TestFinalTranscriptDrivesReply(t *testing.T) {
	_, _, _, s, l, tt := startedAgent(t)

	s.EmitTranscript("I alre", false)
	s.EmitTranscript("I already paid this.", true)

	deadline := time.Now().Add(time.Second)
	for {
		sent := tt.Sent()
		if len(sent) == 1 && sent[0] == "I can help with that." {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("reply never synthesized, sent=%v", sent)
		}
		time.Sleep(time.Millisecond)
	}

	calls := l.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one generation call, got %d", len(calls))
	}
	msgs := calls[0].Messages
	if len(msgs) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(msgs))
	}
	if msgs[0]["role"] != "system" || msgs[1]["content"] != "I already paid this." {
		t.Fatalf("unexpected generation context %v", msgs)
	}
}

func TestAudioFansOutToVADAndSTT(t *testing.T) {
	_, sess, v, s, _, _ := startedAgent(t)

	for i := 0; i < 5; i++ {
		sess.PushAudio(frames.NewAudioFrame("s1", int64(i), make([]byte, 320), 16000, 1, nil))
	}

	deadline := time.Now().Add(time.Second)
	for v.Processed() < 5 || s.AudioFrames() < 5 {
		if time.Now().After(deadline) {
			t.Fatalf("audio fan-out incomplete: vad=%d stt=%d", v.Processed(), s.AudioFrames())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDoubleStartRejected(t *testing.T) {
	a, sess, _, _, _, _ := startedAgent(t)
	participant := &rtcmock.Participant{ID: "caller-1"}
	if err := a.Start(context.Background(), sess, participant); err == nil {
		t.Fatalf("expected second start to fail")
	}
}
