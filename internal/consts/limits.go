package consts

import "time"

// LLM defaults
const (
	// DefaultMaxTokens is the default maximum tokens for model responses
	DefaultMaxTokens = 2048
	// DefaultTemperature is the default sampling temperature for assist calls
	DefaultTemperature = 0.7
)

// Context formatting limits
const (
	// MaxContextTokens caps the token estimate of a single formatted context block
	MaxContextTokens = 24000
	// MaxSceneExcerptChars bounds how much scene prose is quoted into a prompt
	MaxSceneExcerptChars = 4000
)

// Timeouts for various operations
const (
	// Timeout5Seconds is a 5 second timeout
	Timeout5Seconds = 5 * time.Second
	// Timeout10Seconds is a 10 second timeout
	Timeout10Seconds = 10 * time.Second
	// Timeout30Seconds is a 30 second timeout
	Timeout30Seconds = 30 * time.Second
	// Timeout2Minutes is a 2 minute timeout
	Timeout2Minutes = 2 * time.Minute
)

// Mailbox sizes for background actors
const (
	// BillingMailboxSize bounds queued debit requests per process
	BillingMailboxSize = 64
	// AuditMailboxSize bounds queued audit writes per process
	AuditMailboxSize = 128
)
