package serviceinfo

import "context"

// Callback observes service information changes after they are committed.
type Callback interface {
	OnCreated(ctx context.Context, si *ServiceInformation) error
	OnUpdated(ctx context.Context, si *ServiceInformation) error
	OnDeleted(ctx context.Context, si *ServiceInformation) error
}

// CallbackFuncs adapts plain functions to Callback. Nil fields are skipped.
type CallbackFuncs struct {
	Created func(ctx context.Context, si *ServiceInformation) error
	Updated func(ctx context.Context, si *ServiceInformation) error
	Deleted func(ctx context.Context, si *ServiceInformation) error
}

func (f CallbackFuncs) OnCreated(ctx context.Context, si *ServiceInformation) error {
	if f.Created == nil {
		return nil
	}
	return f.Created(ctx, si)
}

func (f CallbackFuncs) OnUpdated(ctx context.Context, si *ServiceInformation) error {
	if f.Updated == nil {
		return nil
	}
	return f.Updated(ctx, si)
}

func (f CallbackFuncs) OnDeleted(ctx context.Context, si *ServiceInformation) error {
	if f.Deleted == nil {
		return nil
	}
	return f.Deleted(ctx, si)
}
