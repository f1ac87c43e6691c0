package metadata

import (
	"fmt"
	"strings"
)

type SessionStatus string

const (
	StatusScheduled  SessionStatus = "Scheduled"
	StatusInProgress SessionStatus = "In progress"
	StatusCompleted  SessionStatus = "Completed"
	StatusCancelled  SessionStatus = "Cancelled"
)

// OpenStatuses are the statuses whose sessions still hold doses in reserve.
var OpenStatuses = []SessionStatus{StatusScheduled, StatusInProgress}

// TerminalStatuses never transition again.
var TerminalStatuses = []SessionStatus{StatusCompleted, StatusCancelled}

func NewSessionStatus(value string) (SessionStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer("_", " ", "-", " ").Replace(normalized)

	for _, status := range []SessionStatus{StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled} {
		if strings.ToLower(string(status)) == normalized {
			return status, nil
		}
	}

	return "", fmt.Errorf(
		"invalid session status: %q, only valid values are: %s, %s, %s, %s",
		value, StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled,
	)
}

func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case StatusScheduled:
		return next == StatusInProgress || next == StatusCompleted || next == StatusCancelled
	case StatusInProgress:
		return next == StatusCompleted || next == StatusCancelled
	default:
		return false
	}
}

func (s SessionStatus) String() string {
	return string(s)
}
