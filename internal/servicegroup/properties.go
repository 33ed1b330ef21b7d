package servicegroup

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	dErrors "smp/pkg/domain-errors"
)

const (
	PropertyNameMaxLen  = 256
	PropertyValueMaxLen = 256
)

var propertyNamePattern = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{1,256}$`)

// PropertyType controls whether a custom property is exposed to lookups.
type PropertyType string

const (
	PropertyPrivate PropertyType = "private"
	PropertyPublic  PropertyType = "public"
)

func (t PropertyType) IsValid() bool {
	return t == PropertyPrivate || t == PropertyPublic
}

func (t *PropertyType) UnmarshalText(text []byte) error {
	v := PropertyType(text)
	if !v.IsValid() {
		return fmt.Errorf("unknown custom property type %q", string(text))
	}
	*t = v
	return nil
}

// Property is a named value attached to a service group. Empty values are
// allowed.
type Property struct {
	Type  PropertyType `json:"type"`
	Name  string       `json:"name"`
	Value string       `json:"value"`
}

// NewProperty validates and builds a property.
func NewProperty(t PropertyType, name, value string) (Property, error) {
	p := Property{Type: t, Name: name, Value: value}
	return p, p.Validate()
}

func (p Property) IsPublic() bool { return p.Type == PropertyPublic }

func (p Property) Validate() error {
	if !p.Type.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "custom property type %q is invalid", p.Type)
	}
	if !propertyNamePattern.MatchString(p.Name) {
		return dErrors.Newf(dErrors.CodeValidation, "custom property name %q is invalid", p.Name)
	}
	if utf8.RuneCountInString(p.Value) > PropertyValueMaxLen {
		return dErrors.Newf(dErrors.CodeValidation, "custom property %q value exceeds %d characters", p.Name, PropertyValueMaxLen)
	}
	return nil
}

// Properties is a list of custom properties with unique names, kept sorted by
// name.
type Properties []Property

// NewProperties validates props and rejects duplicate names.
func NewProperties(props ...Property) (Properties, error) {
	out := make(Properties, 0, len(props))
	for _, p := range props {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, ok := out.Get(p.Name); ok {
			return nil, dErrors.Newf(dErrors.CodeValidation, "duplicate custom property %q", p.Name)
		}
		out = append(out, p)
	}
	out.sort()
	return out, nil
}

func (ps Properties) Get(name string) (Property, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Public returns only the public properties.
func (ps Properties) Public() Properties {
	var out Properties
	for _, p := range ps {
		if p.IsPublic() {
			out = append(out, p)
		}
	}
	return out
}

// With returns a copy with p added or replaced.
func (ps Properties) With(p Property) Properties {
	out := slices.Clone(ps)
	if i := slices.IndexFunc(out, func(q Property) bool { return q.Name == p.Name }); i >= 0 {
		out[i] = p
		return out
	}
	out = append(out, p)
	out.sort()
	return out
}

// Without returns a copy without the property called name.
func (ps Properties) Without(name string) Properties {
	return slices.DeleteFunc(slices.Clone(ps), func(p Property) bool { return p.Name == name })
}

func (ps Properties) Equal(other Properties) bool {
	return slices.Equal(ps, other)
}

func (ps Properties) sort() {
	slices.SortFunc(ps, func(a, b Property) int { return strings.Compare(a.Name, b.Name) })
}
