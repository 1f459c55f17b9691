package types

type CommandRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Text      string `json:"text" validate:"required"`
	// TimeZone is the caller's IANA zone, e.g. "Asia/Kolkata".
	TimeZone string `json:"timeZone,omitempty"`
}

type RecognitionErrorRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Error     string `json:"error" validate:"required"`
}

type TTSRequest struct {
	Text string `json:"text" validate:"required"`
}

// Speech is one line for the client to synthesize.
type Speech struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

// CommandResponse lists, in issue order, everything a turn asked the client
// to say and open, plus the final text of the display region.
type CommandResponse struct {
	SessionID  string   `json:"sessionId"`
	Transcript string   `json:"transcript,omitempty"`
	Intent     string   `json:"intent,omitempty"`
	Argument   string   `json:"argument,omitempty"`
	Speech     []Speech `json:"speech"`
	Open       []string `json:"open,omitempty"`
	Display    string   `json:"display"`
	Error      string   `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
