package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// AuditLog is one entry of a resource's history. Action is one of create,
// deduct, restore, recalculate, status_change, administered or role_change.
type AuditLog struct {
	ID           int                    `json:"id" db:"id"`
	ResourceID   int                    `json:"resource_id" db:"resource_id"`
	ResourceType string                 `json:"resource_type" db:"resource_type"`
	Action       string                 `json:"action" db:"action"`
	RawData      []byte                 `json:"-" db:"data"`
	Data         map[string]interface{} `json:"data,omitempty" db:"-"`
	CreatedAt    time.Time              `json:"created_at" db:"created_at"`
	UserID       *int                   `json:"user_id,omitempty" db:"user_id"`
}

// DecodeData fills Data from the stored JSONB payload. A NULL payload leaves
// Data empty.
func (a *AuditLog) DecodeData() error {
	if len(a.RawData) == 0 {
		return nil
	}
	if err := json.Unmarshal(a.RawData, &a.Data); err != nil {
		return fmt.Errorf("audit log %d has malformed data: %w", a.ID, err)
	}
	return nil
}
