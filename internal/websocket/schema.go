package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionState    Action = "state"
	ActionPing     Action = "ping"
)

// RequestPayload is every client message. Fields not used by Action are
// ignored.
type RequestPayload struct {
	Action Action `json:"action"`
	// QID and Answer carry one autosaved answer.
	QID    string `json:"q_id,omitempty"`
	Answer string `json:"ans,omitempty"`
	// Answers are merged over the recorded answers on submit.
	Answers map[string]string `json:"answers,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError   Event = "error"
	EventSuccess Event = "success"
	EventGraded  Event = "graded"
	EventState   Event = "state"
	EventPong    Event = "pong"
)

// ResponsePayload is every server message.
type ResponsePayload struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data,omitempty"`
	Error *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody mirrors the HTTP error envelope so clients share one decoder.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AutosaveData struct {
	Status string `json:"status"`
	QID    string `json:"q_id"`
}

type GradedData struct {
	Status     string  `json:"status"`
	TotalScore int     `json:"total_score"`
	MaxScore   int     `json:"max_score"`
	Percent    float64 `json:"percent"`
}
