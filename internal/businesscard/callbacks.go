package businesscard

import "context"

// CallbackFuncs adapts plain functions to Callback. Nil fields are skipped.
type CallbackFuncs struct {
	CreatedOrUpdated func(ctx context.Context, bc *BusinessCard, syncToDirectory bool) error
	Deleted          func(ctx context.Context, bc *BusinessCard, syncToDirectory bool) error
}

func (f CallbackFuncs) OnCreatedOrUpdated(ctx context.Context, bc *BusinessCard, syncToDirectory bool) error {
	if f.CreatedOrUpdated == nil {
		return nil
	}
	return f.CreatedOrUpdated(ctx, bc, syncToDirectory)
}

func (f CallbackFuncs) OnDeleted(ctx context.Context, bc *BusinessCard, syncToDirectory bool) error {
	if f.Deleted == nil {
		return nil
	}
	return f.Deleted(ctx, bc, syncToDirectory)
}
