// Package audit keeps a persistent trail of lifecycle and invitation events.
package audit

import (
	"encoding/json"
	"time"

	auditDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/audit"
)

type Entry struct {
	ID         int64                  `json:"id"`
	EventID    string                 `json:"event_id"`
	ActorID    *int64                 `json:"actor_id"`
	Action     string                 `json:"action"`
	TargetType string                 `json:"target_type"`
	TargetID   int64                  `json:"target_id"`
	Details    map[string]interface{} `json:"details"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Filter narrows a listing. Zero values mean "any"; Limit defaults to DefaultLimit.
type Filter struct {
	ActorID    int64
	TargetType string
	TargetID   int64
	Action     string
	Limit      int
}

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

type EntriesResponse struct {
	Entries []*Entry `json:"entries"`
}

func FromDataModel(row *auditDatamodel.AuditLog) *Entry {
	e := &Entry{
		ID:         row.ID,
		EventID:    row.EventID,
		ActorID:    row.ActorID,
		Action:     row.Action,
		TargetType: row.TargetType,
		TargetID:   row.TargetID,
		Details:    map[string]interface{}{},
		CreatedAt:  row.CreatedAt,
	}
	if row.Details != "" {
		// details are written by Recorder; a corrupt row still lists without them
		_ = json.Unmarshal([]byte(row.Details), &e.Details)
	}
	return e
}
