package audit

import "time"

// EventType categorises the security-relevant action that was recorded.
type EventType string

const (
	EventLock               EventType = "LOCK"
	EventUnlock             EventType = "UNLOCK"
	EventFailedAttempt      EventType = "FAILED_ATTEMPT"
	EventUnauthorizedAccess EventType = "UNAUTHORIZED_ACCESS"
)

// Severity indicates the importance of an audit event.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Context captures where a request came from.
type Context struct {
	SourceAddress    string `json:"source_address"`
	ClientDescriptor string `json:"client_descriptor"`
}

// Event is a single audit trail record. Events are immutable once
// written; only Resolved may change, via the triage path.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"event_type"`
	Principal string    `json:"principal"`
	Context   Context   `json:"context"`
	Severity  Severity  `json:"severity"`
	Resolved  bool      `json:"resolved"`
}

// Stats aggregates event counts over a time window.
type Stats struct {
	Window     string            `json:"window"`
	Total      int               `json:"total"`
	ByType     map[EventType]int `json:"by_type"`
	BySeverity map[Severity]int  `json:"by_severity"`
}
