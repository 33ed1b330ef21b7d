package domain

// Change reports whether a mutation altered persisted state.
type Change bool

const (
	Changed   Change = true
	Unchanged Change = false
)

// Or combines two changes; the result is Changed if either one is.
func (c Change) Or(other Change) Change {
	return c || other
}

func (c Change) IsChanged() bool { return bool(c) }

func (c Change) String() string {
	if c {
		return "changed"
	}
	return "unchanged"
}
