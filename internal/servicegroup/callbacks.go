package servicegroup

//go:generate mockgen -source=callbacks.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"smp/internal/identifier"
)

// Callback observes service group lifecycle events. Callbacks run
// synchronously after the change is committed; errors are logged only.
type Callback interface {
	OnCreated(ctx context.Context, group *ServiceGroup, createdInSML bool) error
	OnUpdated(ctx context.Context, pid identifier.Participant) error
	OnDeleted(ctx context.Context, pid identifier.Participant, deletedInSML bool) error
}

// CallbackFuncs adapts plain functions to Callback. Nil fields are skipped.
type CallbackFuncs struct {
	Created func(ctx context.Context, group *ServiceGroup, createdInSML bool) error
	Updated func(ctx context.Context, pid identifier.Participant) error
	Deleted func(ctx context.Context, pid identifier.Participant, deletedInSML bool) error
}

func (f CallbackFuncs) OnCreated(ctx context.Context, group *ServiceGroup, createdInSML bool) error {
	if f.Created == nil {
		return nil
	}
	return f.Created(ctx, group, createdInSML)
}

func (f CallbackFuncs) OnUpdated(ctx context.Context, pid identifier.Participant) error {
	if f.Updated == nil {
		return nil
	}
	return f.Updated(ctx, pid)
}

func (f CallbackFuncs) OnDeleted(ctx context.Context, pid identifier.Participant, deletedInSML bool) error {
	if f.Deleted == nil {
		return nil
	}
	return f.Deleted(ctx, pid, deletedInSML)
}

// RegistrationHook registers participants in the SML. Every call must be
// idempotent; a failing local change after a successful call is compensated
// through the paired undo.
type RegistrationHook interface {
	CreateServiceGroup(ctx context.Context, pid identifier.Participant) error
	UndoCreateServiceGroup(ctx context.Context, pid identifier.Participant) error
	DeleteServiceGroup(ctx context.Context, pid identifier.Participant) error
	UndoDeleteServiceGroup(ctx context.Context, pid identifier.Participant) error
}
