package models

import "time"

// Reasons a stored object is queued for deletion
const (
	CleanupReasonRecordDeleted = "record_deleted"
	CleanupReasonMediaReplaced = "media_replaced"
	CleanupReasonDeleteFailed  = "delete_failed"
)

// PendingCleanup is an outbox entry for an object that must be removed from the store
type PendingCleanup struct {
	ID          int64      `json:"id"`
	ObjectKey   string     `json:"objectKey"`
	PublicURL   string     `json:"publicUrl"`
	Reason      string     `json:"reason"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"lastError,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// SweepResult summarises one reconciliation pass
type SweepResult struct {
	Total   int `json:"total"`
	Cleaned int `json:"cleaned"`
	Failed  int `json:"failed"`
}
