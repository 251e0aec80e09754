package web

// Event is a typed message pushed to connected WebSocket clients. The type
// string is the contract; payload shapes are documented per event.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventCreditsUpdated is emitted after a successful debit or grant.
const EventCreditsUpdated = "credits_updated"

// CreditsPayload accompanies EventCreditsUpdated.
type CreditsPayload struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}
