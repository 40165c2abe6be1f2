package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// Request event kinds.
const (
	KindAPI = "api"
	KindLLM = "llm"
)

// RequestEventData captures one outbound call: a backend API request or an
// LLM generation.
type RequestEventData struct {
	Kind         string // KindAPI or KindLLM
	Target       string // "GET /api/reading/history" or the LLM provider
	Model        string
	Purpose      string
	RequestID    string
	Status       int
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// RequestEvent is a stored RequestEventData.
type RequestEvent struct {
	RequestEventData
	ID        int
	Sequence  int64
	Timestamp time.Time
}

// UsageStat aggregates request events by purpose or model.
type UsageStat struct {
	Key          string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// AttemptEventData records a completed quiz.
type AttemptEventData struct {
	APIURL   string
	Student  string
	LessonID string
	Topic    string
	Score    int
	Total    int
}

// AttemptEvent is a stored AttemptEventData.
type AttemptEvent struct {
	AttemptEventData
	ID        int
	Sequence  int64
	Timestamp time.Time
}

// AttemptStats summarises the attempt log.
type AttemptStats struct {
	Attempts    int
	Questions   int
	Correct     int
	PerfectRuns int
	LastAttempt time.Time
}

// EventRepo provides append and query access to the event log.
type EventRepo interface {
	// AppendRequest records an outbound API or LLM call.
	AppendRequest(ctx context.Context, data RequestEventData) error

	// QueryRequests returns request events, newest first.
	QueryRequests(ctx context.Context, kind string, opts QueryOpts) ([]RequestEvent, error)

	// GetRequest returns one request event, or nil if it does not exist.
	GetRequest(ctx context.Context, id int) (*RequestEvent, error)

	// UsageByPurpose aggregates LLM token usage per purpose.
	UsageByPurpose(ctx context.Context) ([]UsageStat, error)

	// UsageByModel aggregates LLM token usage per model.
	UsageByModel(ctx context.Context) ([]UsageStat, error)

	// AppendAttempt records a completed quiz.
	AppendAttempt(ctx context.Context, data AttemptEventData) error

	// QueryAttempts returns attempts, newest first.
	QueryAttempts(ctx context.Context, opts QueryOpts) ([]AttemptEvent, error)

	// AttemptStats summarises all recorded attempts.
	AttemptStats(ctx context.Context) (AttemptStats, error)
}

// Credential is the saved login for one backend.
type Credential struct {
	APIURL    string
	Token     string
	Email     string
	Role      string
	UpdatedAt time.Time
}

// CredentialRepo persists the login token per backend URL.
type CredentialRepo interface {
	Save(ctx context.Context, c Credential) error
	// Get returns the credential for apiURL, or nil if none is saved.
	Get(ctx context.Context, apiURL string) (*Credential, error)
	Delete(ctx context.Context, apiURL string) error
}

// LessonRecord is an offline lesson. Quiz holds the canonical quiz as JSON.
type LessonRecord struct {
	ID           string
	Owner        string
	Topic        string
	Title        string
	Content      string
	Quiz         string
	IsAssignment bool
	Score        *int
	CreatedAt    time.Time
}

// LessonRepo stores offline lessons.
type LessonRepo interface {
	Save(ctx context.Context, l LessonRecord) error
	// Get returns the lesson, or nil if it does not exist.
	Get(ctx context.Context, owner, id string) (*LessonRecord, error)
	// List returns the owner's lessons, newest first, without content.
	List(ctx context.Context, owner string, limit int) ([]LessonRecord, error)
	// Delete removes a lesson. It reports whether a row was deleted.
	Delete(ctx context.Context, owner, id string) (bool, error)
	SetScore(ctx context.Context, owner, id string, score int) error
}
