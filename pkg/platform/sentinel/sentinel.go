package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and persistence backends return
// these (optionally wrapped) so managers can translate them into domain errors.
//
// These represent factual states about records, not validation failures:
// - ErrNotFound: record does not exist in the store
// - ErrConflict: a record with the same key already exists
// - ErrInvalidState: record in wrong state for requested operation
// - ErrUnavailable: backend temporarily unreachable
// - ErrCorrupt: persisted payload cannot be decoded
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrCorrupt      = errors.New("corrupt record")
)
