package migration

import (
	"fmt"
	"time"

	"smp/internal/identifier"
	dErrors "smp/pkg/domain-errors"
)

// Direction tells whether a participant moves away from or to this registry.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

func (d Direction) IsValid() bool {
	return d == DirectionOutbound || d == DirectionInbound
}

func (d Direction) MarshalText() ([]byte, error) {
	if !d.IsValid() {
		return nil, fmt.Errorf("unknown migration direction %q", string(d))
	}
	return []byte(d), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	v := Direction(text)
	if !v.IsValid() {
		return fmt.Errorf("unknown migration direction %q", string(text))
	}
	*d = v
	return nil
}

// State is the lifecycle state of a migration. InProgress is the only
// non-terminal state.
type State string

const (
	StateInProgress State = "in_progress"
	StateMigrated   State = "migrated"
	StateCancelled  State = "cancelled"
)

func (s State) IsValid() bool {
	switch s {
	case StateInProgress, StateMigrated, StateCancelled:
		return true
	}
	return false
}

func (s State) IsTerminal() bool {
	return s == StateMigrated || s == StateCancelled
}

// CanTransitionTo reports whether next is reachable from s.
func (s State) CanTransitionTo(next State) bool {
	return s == StateInProgress && next.IsTerminal()
}

func (s State) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("unknown migration state %q", string(s))
	}
	return []byte(s), nil
}

func (s *State) UnmarshalText(text []byte) error {
	v := State(text)
	if !v.IsValid() {
		return fmt.Errorf("unknown migration state %q", string(text))
	}
	*s = v
	return nil
}

// Migration records a participant moving between registries.
//
// Invariant: at most one InProgress migration per (participant, direction).
type Migration struct {
	ID            string                 `json:"id"`
	Direction     Direction              `json:"direction"`
	State         State                  `json:"state"`
	ParticipantID identifier.Participant `json:"participant_id"`
	InitiatedAt   time.Time              `json:"initiated_at"`
	MigrationKey  string                 `json:"migration_key"`
}

func (m *Migration) StoreID() string { return m.ID }

func (m *Migration) Clone() *Migration {
	c := *m
	return &c
}

func (m *Migration) Validate() error {
	switch {
	case m.ID == "":
		return dErrors.New(dErrors.CodeValidation, "migration ID is required")
	case !m.Direction.IsValid():
		return dErrors.Newf(dErrors.CodeValidation, "invalid migration direction %q", m.Direction)
	case !m.State.IsValid():
		return dErrors.Newf(dErrors.CodeValidation, "invalid migration state %q", m.State)
	case m.ParticipantID.IsZero():
		return dErrors.New(dErrors.CodeValidation, "migration participant is required")
	case m.MigrationKey == "":
		return dErrors.New(dErrors.CodeValidation, "migration key is required")
	}
	return nil
}

func (m *Migration) IsInProgress() bool {
	return m.State == StateInProgress
}

func (m *Migration) isInProgressFor(direction Direction, pid identifier.Participant) bool {
	return m.Direction == direction && m.IsInProgress() && m.ParticipantID == pid
}
