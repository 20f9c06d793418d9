package frames

// Well-known metadata keys shared across pipeline stages and transports.
const (
	MetaStreamID    = "stream_id"
	MetaTraceID     = "trace_id"
	MetaRoom        = "room"
	MetaParticipant = "participant"
	MetaSource      = "source"
	MetaReason      = "reason"
	MetaIsFinal     = "is_final"
	MetaUtterance   = "utterance_id"
	MetaEncoding    = "encoding"
	MetaCodec       = "codec"
)
