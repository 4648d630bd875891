package deepgram

// resultMessage is the inbound frame shape for transcription results.
type resultMessage struct {
	IsFinal bool `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
	Error string `json:"error"`
}

// Callbacks receives session events. Nil members are skipped.
type Callbacks struct {
	// OnOpen fires once the socket handshake completes.
	OnOpen func()
	// OnResult delivers a transcript alternative and whether it is final.
	OnResult func(text string, isFinal bool)
	// OnAPIError delivers an inbound frame carrying an error field. The
	// session continues; the server decides whether to close.
	OnAPIError func(msg string)
	// OnError fires on a socket-level failure.
	OnError func(err error)
	// OnClose fires when the socket closes, with the close code and reason.
	OnClose func(code int, reason string)
}
