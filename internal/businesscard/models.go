package businesscard

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "smp/pkg/domain-errors"
	platformstrings "smp/pkg/platform/strings"
)

var countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// Name is a possibly localized entity name.
type Name struct {
	Name         string `json:"name"`
	LanguageCode string `json:"language_code,omitempty"`
}

// Identifier is an additional business identifier of an entity.
type Identifier struct {
	ID     string `json:"id"`
	Scheme string `json:"scheme"`
	Value  string `json:"value"`
}

// Contact is a point of contact of an entity. At least one field is set.
type Contact struct {
	ID          string `json:"id"`
	Type        string `json:"type,omitempty"`
	Name        string `json:"name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Email       string `json:"email,omitempty"`
}

func (c Contact) isAnyFieldSet() bool {
	return c.Type != "" || c.Name != "" || c.PhoneNumber != "" || c.Email != ""
}

// Entity is one legal entity listed in the directory for a participant.
type Entity struct {
	ID                      string       `json:"id"`
	Names                   []Name       `json:"names"`
	CountryCode             string       `json:"country_code"`
	GeographicalInformation string       `json:"geographical_information,omitempty"`
	Identifiers             []Identifier `json:"identifiers,omitempty"`
	WebsiteURIs             []string     `json:"website_uris,omitempty"`
	Contacts                []Contact    `json:"contacts,omitempty"`
	AdditionalInformation   string       `json:"additional_information,omitempty"`
	RegistrationDate        *time.Time   `json:"registration_date,omitempty"`
}

// normalize assigns missing IDs, upper-cases the country code and drops
// repeated website URIs.
func (e *Entity) normalize() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CountryCode = strings.ToUpper(strings.TrimSpace(e.CountryCode))
	if len(e.WebsiteURIs) > 0 {
		e.WebsiteURIs = platformstrings.DedupeAndTrim(e.WebsiteURIs)
	}
	for i := range e.Identifiers {
		if e.Identifiers[i].ID == "" {
			e.Identifiers[i].ID = uuid.NewString()
		}
	}
	for i := range e.Contacts {
		if e.Contacts[i].ID == "" {
			e.Contacts[i].ID = uuid.NewString()
		}
	}
}

func (e Entity) clone() Entity {
	e.Names = slices.Clone(e.Names)
	e.Identifiers = slices.Clone(e.Identifiers)
	e.WebsiteURIs = slices.Clone(e.WebsiteURIs)
	e.Contacts = slices.Clone(e.Contacts)
	if e.RegistrationDate != nil {
		d := *e.RegistrationDate
		e.RegistrationDate = &d
	}
	return e
}

func (e Entity) Validate() error {
	if len(e.Names) == 0 {
		return dErrors.New(dErrors.CodeValidation, "business entity needs at least one name")
	}
	for _, n := range e.Names {
		if strings.TrimSpace(n.Name) == "" {
			return dErrors.New(dErrors.CodeValidation, "business entity name must not be empty")
		}
	}
	if !countryCodePattern.MatchString(e.CountryCode) {
		return dErrors.Newf(dErrors.CodeValidation, "invalid country code %q", e.CountryCode)
	}
	for _, id := range e.Identifiers {
		if id.Scheme == "" || id.Value == "" {
			return dErrors.New(dErrors.CodeValidation, "business entity identifier needs scheme and value")
		}
	}
	for _, c := range e.Contacts {
		if !c.isAnyFieldSet() {
			return dErrors.New(dErrors.CodeValidation, "business entity contact is empty")
		}
	}
	return nil
}

// BusinessCard lists the directory entities of one service group. Its ID is
// the service group ID.
type BusinessCard struct {
	ID       string   `json:"id"`
	Entities []Entity `json:"entities"`
}

// NewBusinessCard normalizes and validates the entities of a card.
func NewBusinessCard(serviceGroupID string, entities []Entity) (*BusinessCard, error) {
	bc := &BusinessCard{ID: serviceGroupID, Entities: make([]Entity, 0, len(entities))}
	for _, e := range entities {
		e = e.clone()
		e.normalize()
		bc.Entities = append(bc.Entities, e)
	}
	if err := bc.Validate(); err != nil {
		return nil, err
	}
	return bc, nil
}

func (bc *BusinessCard) StoreID() string { return bc.ID }

func (bc *BusinessCard) Clone() *BusinessCard {
	c := &BusinessCard{ID: bc.ID, Entities: make([]Entity, len(bc.Entities))}
	for i, e := range bc.Entities {
		c.Entities[i] = e.clone()
	}
	return c
}

func (bc *BusinessCard) Validate() error {
	if bc.ID == "" {
		return dErrors.New(dErrors.CodeValidation, "business card service group ID is required")
	}
	seen := make(map[string]struct{}, len(bc.Entities))
	for _, e := range bc.Entities {
		if err := e.Validate(); err != nil {
			return err
		}
		if _, dup := seen[e.ID]; dup {
			return dErrors.Newf(dErrors.CodeValidation, "duplicate business entity %s", e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}
