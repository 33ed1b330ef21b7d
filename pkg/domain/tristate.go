package domain

import "fmt"

// TriState is a boolean that may also be undefined, used where "not yet
// known" differs from "false" (e.g. backend connectivity before the first probe).
type TriState int

const (
	Undefined TriState = iota
	True
	False
)

// TriStateOf converts a bool.
func TriStateOf(b bool) TriState {
	if b {
		return True
	}
	return False
}

func (t TriState) IsDefined() bool { return t != Undefined }

// Bool returns the boolean value, or def when undefined.
func (t TriState) Bool(def bool) bool {
	switch t {
	case True:
		return true
	case False:
		return false
	default:
		return def
	}
}

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	case Undefined:
		return "undefined"
	default:
		return fmt.Sprintf("TriState(%d)", int(t))
	}
}
