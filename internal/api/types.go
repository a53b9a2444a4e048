package api

import "time"

// Public JSON types returned by the API. These are intentionally decoupled
// from the internal core types to preserve API stability and allow internal
// refactors without breaking clients.

// ModeView describes one configured mode.
type ModeView struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Note     string `json:"note"`
	Emoji    string `json:"emoji"`
	Color    string `json:"color"`
	Triggers []int  `json:"triggers,omitempty"`
}

// StatusResponse is the top-level payload for GET /v1/status.
type StatusResponse struct {
	Mode         ModeView `json:"mode"`
	DoNotDisturb bool     `json:"do_not_disturb"`
	Subscribers  int      `json:"subscribers"`
	GeneratedAt  string   `json:"generated_at"`
}

// ModesResponse is the payload for GET /v1/modes.
type ModesResponse struct {
	Default string     `json:"default"`
	Modes   []ModeView `json:"modes"`
}

// DoNotDisturbResponse is the payload for POST /v1/dnd.
type DoNotDisturbResponse struct {
	DoNotDisturb bool `json:"do_not_disturb"`
}

// APIError is a standard error payload.
type APIError struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"` // RFC3339
}

// TimeNow abstracts time for tests; overridden in tests.
var TimeNow = func() time.Time { return time.Now() }
