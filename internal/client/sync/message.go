package sync

import "time"

// Action describes what happened to an entity
type Action string

// Supported change actions
const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionRefresh Action = "refresh" // синтетическое "перечитай все"
)

// RefreshAll is the entity id carried by synthetic refresh messages
const RefreshAll = "all"

// ChangeMessage announces that an entity changed. Transient: it lives
// only on the bus and is consumed once per receiving context.
type ChangeMessage struct {
	Type        string    `json:"type"` // entity kind (exercice, tag, ...)
	Action      Action    `json:"action"`
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"source,omitempty"` // id контекста-отправителя
}
