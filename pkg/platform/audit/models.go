package audit

import (
	"time"
)

// ObjectType names the kind of registry object an event is about.
type ObjectType string

const (
	ObjectServiceGroup      ObjectType = "smp-servicegroup"
	ObjectServiceInfo       ObjectType = "smp-serviceinformation"
	ObjectRedirect          ObjectType = "smp-redirect"
	ObjectTransportProfile  ObjectType = "smp-transportprofile"
	ObjectBusinessCard      ObjectType = "smp-businesscard"
	ObjectMigration         ObjectType = "smp-participant-migration"
	ObjectSPFPolicy         ObjectType = "smp-spf4peppol-policy"
	ObjectSettings          ObjectType = "smp-settings"
	ObjectSMLInfo           ObjectType = "smp-sml-info"
	ObjectSystemMigration   ObjectType = "smp-system-migration"
	ObjectBackendConnection ObjectType = "smp-backend-connection"
)

// Action is the kind of change.
type Action string

const (
	ActionCreate Action = "create"
	ActionModify Action = "modify"
	ActionDelete Action = "delete"
)

// Event is emitted from manager logic to capture every registry mutation,
// successful or not. Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp  time.Time  `json:"timestamp"`
	ObjectType ObjectType `json:"object_type"`
	Action     Action     `json:"action"`
	// Field narrows a modify event, e.g. "owner" or "state".
	Field    string   `json:"field,omitempty"`
	ObjectID string   `json:"object_id"`
	Success  bool     `json:"success"`
	Reason   string   `json:"reason,omitempty"`
	Details  []string `json:"details,omitempty"`
}

// CreateSuccess records a successful creation.
func CreateSuccess(ot ObjectType, id string, details ...string) Event {
	return Event{ObjectType: ot, Action: ActionCreate, ObjectID: id, Success: true, Details: details}
}

// CreateFailure records a rejected creation.
func CreateFailure(ot ObjectType, id, reason string) Event {
	return Event{ObjectType: ot, Action: ActionCreate, ObjectID: id, Reason: reason}
}

// ModifySuccess records a successful modification of field.
func ModifySuccess(ot ObjectType, field, id string, details ...string) Event {
	return Event{ObjectType: ot, Action: ActionModify, Field: field, ObjectID: id, Success: true, Details: details}
}

// ModifyFailure records a rejected modification.
func ModifyFailure(ot ObjectType, field, id, reason string) Event {
	return Event{ObjectType: ot, Action: ActionModify, Field: field, ObjectID: id, Reason: reason}
}

// DeleteSuccess records a successful deletion.
func DeleteSuccess(ot ObjectType, id string, details ...string) Event {
	return Event{ObjectType: ot, Action: ActionDelete, ObjectID: id, Success: true, Details: details}
}

// DeleteFailure records a rejected deletion.
func DeleteFailure(ot ObjectType, id, reason string) Event {
	return Event{ObjectType: ot, Action: ActionDelete, ObjectID: id, Reason: reason}
}

// Outcome returns "success" or "failure" for logging and metrics labels.
func (e Event) Outcome() string {
	if e.Success {
		return "success"
	}
	return "failure"
}
