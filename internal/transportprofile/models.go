package transportprofile

import (
	"fmt"
	"strings"

	dErrors "smp/pkg/domain-errors"
)

// State of a transport profile.
type State string

const (
	StateActive     State = "active"
	StateDeprecated State = "deprecated"
)

func StateOf(deprecated bool) State {
	if deprecated {
		return StateDeprecated
	}
	return StateActive
}

func (s State) IsValid() bool {
	return s == StateActive || s == StateDeprecated
}

func (s State) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("unknown transport profile state %q", string(s))
	}
	return []byte(s), nil
}

// UnmarshalText rejects unknown states so a corrupt record fails at load.
func (s *State) UnmarshalText(text []byte) error {
	v := State(text)
	if !v.IsValid() {
		return fmt.Errorf("unknown transport profile state %q", string(text))
	}
	*s = v
	return nil
}

// Profile identifies a messaging protocol binding an endpoint can use.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State State  `json:"state"`
}

// NewProfile validates and builds a profile.
func NewProfile(id, name string, deprecated bool) (*Profile, error) {
	p := &Profile{
		ID:    strings.TrimSpace(id),
		Name:  strings.TrimSpace(name),
		State: StateOf(deprecated),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Profile) StoreID() string { return p.ID }

func (p *Profile) Clone() *Profile {
	c := *p
	return &c
}

func (p *Profile) IsDeprecated() bool { return p.State == StateDeprecated }

func (p *Profile) Validate() error {
	if p.ID == "" {
		return dErrors.New(dErrors.CodeValidation, "transport profile ID is required")
	}
	if p.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "transport profile name is required")
	}
	if !p.State.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown transport profile state %q", p.State)
	}
	return nil
}

// Well-known profile IDs.
const (
	PeppolAS4v2   = "peppol-transport-as4-v2_0"
	BDXRAS4       = "bdxr-transport-ebms3-as4-v1p0"
	PeppolAS2v1   = "busdox-transport-as2-ver1p0"
	PeppolAS2v2   = "busdox-transport-as2-ver2p0"
	PeppolSTARTv1 = "busdox-transport-start"
)

// Defaults are seeded into an empty registry on first start.
func Defaults() []*Profile {
	return []*Profile{
		{ID: PeppolAS4v2, Name: "Peppol AS4 v2", State: StateActive},
		{ID: BDXRAS4, Name: "OASIS BDXR AS4 v1", State: StateActive},
		{ID: PeppolAS2v1, Name: "Peppol AS2 v1", State: StateDeprecated},
		{ID: PeppolAS2v2, Name: "Peppol AS2 v2", State: StateDeprecated},
		{ID: PeppolSTARTv1, Name: "Peppol START", State: StateDeprecated},
	}
}
