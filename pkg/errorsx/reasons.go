package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	// Fatal before any session is accepted.
	ReasonConfig ReasonCode = "config_invalid"

	ReasonRoomConnect     ReasonCode = "room_connect"
	ReasonParticipantWait ReasonCode = "participant_wait"

	// Fatal for the session, recoverable for the worker.
	ReasonPipelineBind ReasonCode = "pipeline_bind"
	ReasonAgentStart   ReasonCode = "agent_start"

	ReasonSpeakSend    ReasonCode = "speak_send"
	ReasonSpeakTimeout ReasonCode = "speak_timeout"
)
