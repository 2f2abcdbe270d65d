// Package events implements the in-process EventBus, the event
// taxonomy, and the Manager wrapper that logs every emission —
// adapted from the teacher's events.Manager/Bus split.
package events

import "time"

// Type identifies an event in the taxonomy.
type Type string

const (
	OptimizationRunRequested Type = "OPTIMIZATION_RUN_REQUESTED"
	OptimizationCompleted    Type = "OPTIMIZATION_COMPLETED"
	OptimizationFailed       Type = "OPTIMIZATION_FAILED"

	StockLow Type = "STOCK_LOW"

	OrderCreated       Type = "ORDER_CREATED"
	OrderStatusChanged Type = "ORDER_STATUS_CHANGED"
	OrderCompleted     Type = "ORDER_COMPLETED"

	LockAcquired Type = "LOCK_ACQUIRED"
	LockReleased Type = "LOCK_RELEASED"

	Mention         Type = "MENTION"
	DocumentShared  Type = "DOCUMENT_SHARED"
	CommentAdded    Type = "COMMENT_ADDED"
	ActivityCreated Type = "ACTIVITY_CREATED"

	JobProgress Type = "JOB_PROGRESS"

	PlanApproved Type = "PLAN_APPROVED"
	PlanRejected Type = "PLAN_REJECTED"
)

// Event is the envelope carried by the bus:
// {type, aggregate, aggregateId, payload, tenantId?, correlationId?, occurredAt}.
type Event struct {
	Type          Type
	Aggregate     string
	AggregateID   string
	Payload       map[string]any
	TenantID      string
	CorrelationID string
	OccurredAt    time.Time
}

// OptimizationRunRequestedPayload is the typed payload for
// OPTIMIZATION_RUN_REQUESTED.
type OptimizationRunRequestedPayload struct {
	CuttingJobID  string `json:"cuttingJobId"`
	ScenarioID    string `json:"scenarioId"`
	Algorithm     string `json:"algorithm,omitempty"`
	KerfMM        int    `json:"kerf"`
	AllowRotation bool   `json:"allowRotation"`
	CorrelationID string `json:"correlationId"`
}

// OptimizationCompletedPayload is the typed payload for OPTIMIZATION_COMPLETED.
type OptimizationCompletedPayload struct {
	ScenarioID       string  `json:"scenarioId"`
	PlanID           string  `json:"planId"`
	PlanNumber       string  `json:"planNumber"`
	Efficiency       float64 `json:"efficiency"`
	WastePercentage  float64 `json:"wastePercentage"`
}

// OptimizationFailedPayload is the typed payload for OPTIMIZATION_FAILED.
type OptimizationFailedPayload struct {
	ScenarioID string `json:"scenarioId"`
	Reason     string `json:"reason"`
}

// LockPayload is the typed payload for LOCK_ACQUIRED/LOCK_RELEASED.
type LockPayload struct {
	DocumentType string `json:"documentType"`
	DocumentID   string `json:"documentId"`
	UserID       string `json:"userId"`
}

// MentionPayload is the typed payload for MENTION notifications triggered
// by an activity's metadata.mentionedUserIds.
type MentionPayload struct {
	ActivityID      string `json:"activityId"`
	MentionedUserID string `json:"mentionedUserId"`
	ActorID         string `json:"actorId"`
}
