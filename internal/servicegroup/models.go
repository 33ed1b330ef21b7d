package servicegroup

import (
	"strings"

	"smp/internal/identifier"
	dErrors "smp/pkg/domain-errors"
)

// ServiceGroup binds a participant identifier to its owning account.
//
// Invariants:
//   - ID is the URI encoded canonical participant identifier
//   - Participant never changes after creation
//   - OwnerID is non-empty
type ServiceGroup struct {
	ID          string                 `json:"id"`
	Participant identifier.Participant `json:"participant"`
	OwnerID     string                 `json:"owner_id"`
	// Extension is an opaque XML fragment.
	Extension        string     `json:"extension,omitempty"`
	CustomProperties Properties `json:"custom_properties,omitempty"`
}

// IDOf derives the service group ID of a canonical participant identifier.
func IDOf(pid identifier.Participant) string {
	return pid.URIEncoded()
}

func newServiceGroup(pid identifier.Participant, ownerID, extension string) (*ServiceGroup, error) {
	sg := &ServiceGroup{
		ID:          IDOf(pid),
		Participant: pid,
		OwnerID:     strings.TrimSpace(ownerID),
		Extension:   extension,
	}
	if err := sg.Validate(); err != nil {
		return nil, err
	}
	return sg, nil
}

func (sg *ServiceGroup) StoreID() string { return sg.ID }

func (sg *ServiceGroup) Clone() *ServiceGroup {
	c := *sg
	c.CustomProperties = append(Properties(nil), sg.CustomProperties...)
	return &c
}

func (sg *ServiceGroup) Validate() error {
	if sg.Participant.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "participant identifier is required")
	}
	if sg.ID != IDOf(sg.Participant) {
		return dErrors.Newf(dErrors.CodeValidation, "service group ID %q does not match participant", sg.ID)
	}
	if sg.OwnerID == "" {
		return dErrors.New(dErrors.CodeValidation, "owner ID is required")
	}
	for _, p := range sg.CustomProperties {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}
