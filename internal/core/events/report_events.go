package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeReportTransitioned = "report.transitioned"
	EventTypeReportDeleted      = "report.deleted"
)

// WorkflowEventTypes is every event type the workflow service publishes.
var WorkflowEventTypes = []string{EventTypeReportTransitioned, EventTypeReportDeleted}

// ReportTransitionedEvent is published after a workflow transaction has committed.
type ReportTransitionedEvent struct {
	BaseEvent
	ReportID   int64  `json:"report_id"`
	Action     string `json:"action"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	ActorID    int64  `json:"actor_id"`
	Comment    string `json:"comment,omitempty"`
}

func NewReportTransitionedEvent(reportID int64, action, fromStatus, toStatus string, actorID int64, comment string, at time.Time) *ReportTransitionedEvent {
	return &ReportTransitionedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeReportTransitioned,
			Timestamp: at,
			Data: map[string]interface{}{
				"report_id":   reportID,
				"action":      action,
				"from_status": fromStatus,
				"to_status":   toStatus,
				"actor_id":    actorID,
				"comment":     comment,
			},
		},
		ReportID:   reportID,
		Action:     action,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		ActorID:    actorID,
		Comment:    comment,
	}
}

type ReportDeletedEvent struct {
	BaseEvent
	ReportID    int64  `json:"report_id"`
	Status      string `json:"status"`
	RequesterID int64  `json:"requester_id"`
}

func NewReportDeletedEvent(reportID int64, status string, requesterID int64, at time.Time) *ReportDeletedEvent {
	return &ReportDeletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeReportDeleted,
			Timestamp: at,
			Data: map[string]interface{}{
				"report_id":    reportID,
				"status":       status,
				"requester_id": requesterID,
			},
		},
		ReportID:    reportID,
		Status:      status,
		RequesterID: requesterID,
	}
}
