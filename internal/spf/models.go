package spf

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"smp/internal/identifier"
	dErrors "smp/pkg/domain-errors"
)

const (
	MinTTL            = 60
	MaxTTL            = 86400
	DefaultTTL        = 3600
	MaxExplanationLen = 500
)

// Qualifier is the result a matching term yields.
type Qualifier string

const (
	QualifierPass     Qualifier = "pass"
	QualifierFail     Qualifier = "fail"
	QualifierSoftFail Qualifier = "softfail"
	QualifierNeutral  Qualifier = "neutral"
)

func (q Qualifier) IsValid() bool {
	switch q {
	case QualifierPass, QualifierFail, QualifierSoftFail, QualifierNeutral:
		return true
	}
	return false
}

// Prefix is the SPF record prefix of the qualifier.
func (q Qualifier) Prefix() string {
	switch q {
	case QualifierFail:
		return "-"
	case QualifierSoftFail:
		return "~"
	case QualifierNeutral:
		return "?"
	default:
		return "+"
	}
}

func (q Qualifier) MarshalText() ([]byte, error) {
	if !q.IsValid() {
		return nil, fmt.Errorf("unknown SPF qualifier %q", string(q))
	}
	return []byte(q), nil
}

func (q *Qualifier) UnmarshalText(text []byte) error {
	v := Qualifier(text)
	if !v.IsValid() {
		return fmt.Errorf("unknown SPF qualifier %q", string(text))
	}
	*q = v
	return nil
}

// Mechanism selects which property of a sender a term matches on.
type Mechanism string

const (
	MechanismSeatID    Mechanism = "seatid"
	MechanismCertFP    Mechanism = "certfp"
	MechanismSMP       Mechanism = "smp"
	MechanismReference Mechanism = "reference"
	MechanismAll       Mechanism = "all"
)

func (m Mechanism) IsValid() bool {
	switch m {
	case MechanismSeatID, MechanismCertFP, MechanismSMP, MechanismReference, MechanismAll:
		return true
	}
	return false
}

// RequiresValue reports whether terms with this mechanism need a value.
func (m Mechanism) RequiresValue() bool {
	return m == MechanismSeatID || m == MechanismCertFP || m == MechanismReference
}

func (m Mechanism) MarshalText() ([]byte, error) {
	if !m.IsValid() {
		return nil, fmt.Errorf("unknown SPF mechanism %q", string(m))
	}
	return []byte(m), nil
}

func (m *Mechanism) UnmarshalText(text []byte) error {
	v := Mechanism(text)
	if !v.IsValid() {
		return fmt.Errorf("unknown SPF mechanism %q", string(text))
	}
	*m = v
	return nil
}

// Term is one ordered rule of a policy. Evaluation stops at the first term
// whose mechanism matches and yields its qualifier.
type Term struct {
	Qualifier Qualifier `json:"qualifier"`
	Mechanism Mechanism `json:"mechanism"`
	Value     string    `json:"value,omitempty"`
}

// NewTerm validates and builds a term.
func NewTerm(q Qualifier, m Mechanism, value string) (Term, error) {
	t := Term{Qualifier: q, Mechanism: m, Value: strings.TrimSpace(value)}
	if err := t.Validate(); err != nil {
		return Term{}, err
	}
	return t, nil
}

func (t Term) Validate() error {
	if !t.Qualifier.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown SPF qualifier %q", t.Qualifier)
	}
	if !t.Mechanism.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown SPF mechanism %q", t.Mechanism)
	}
	if t.Mechanism.RequiresValue() && t.Value == "" {
		return dErrors.Newf(dErrors.CodeValidation, "SPF mechanism %s requires a value", t.Mechanism)
	}
	return nil
}

// String renders the term in SPF record syntax, e.g. "+seatid:AP001" or "-all".
func (t Term) String() string {
	s := t.Qualifier.Prefix() + string(t.Mechanism)
	if t.Value != "" {
		s += ":" + t.Value
	}
	return s
}

// Policy is the declarative list of access points authorized to send on
// behalf of a participant. Its ID is the participant URI.
type Policy struct {
	ID            string                 `json:"id"`
	ParticipantID identifier.Participant `json:"participant_id"`
	Terms         []Term                 `json:"terms"`
	TTL           *int                   `json:"ttl,omitempty"`
	Explanation   string                 `json:"explanation,omitempty"`
}

// NewPolicy validates and builds a policy. Invalid input is rejected, never
// corrected.
func NewPolicy(pid identifier.Participant, terms []Term, ttl *int, explanation string) (*Policy, error) {
	p := &Policy{
		ID:            pid.URIEncoded(),
		ParticipantID: pid,
		Terms:         slices.Clone(terms),
		Explanation:   explanation,
	}
	if ttl != nil {
		v := *ttl
		p.TTL = &v
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Policy) StoreID() string { return p.ID }

func (p *Policy) Clone() *Policy {
	c := *p
	c.Terms = slices.Clone(p.Terms)
	if p.TTL != nil {
		v := *p.TTL
		c.TTL = &v
	}
	return &c
}

func (p *Policy) Validate() error {
	if p.ParticipantID.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "SPF policy participant is required")
	}
	if p.ID != p.ParticipantID.URIEncoded() {
		return dErrors.Newf(dErrors.CodeValidation, "SPF policy ID %q does not match its participant", p.ID)
	}
	if p.TTL != nil && (*p.TTL < MinTTL || *p.TTL > MaxTTL) {
		return dErrors.Newf(dErrors.CodeValidation, "SPF TTL %d is outside %d..%d", *p.TTL, MinTTL, MaxTTL)
	}
	if n := utf8.RuneCountInString(p.Explanation); n > MaxExplanationLen {
		return dErrors.Newf(dErrors.CodeValidation, "SPF explanation has %d characters, at most %d allowed", n, MaxExplanationLen)
	}
	for _, t := range p.Terms {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// EffectiveTTL is the TTL, or DefaultTTL when none is set.
func (p *Policy) EffectiveTTL() int {
	if p.TTL == nil {
		return DefaultTTL
	}
	return *p.TTL
}

func (p *Policy) TermCount() int {
	return len(p.Terms)
}

// Record renders the policy as a space separated SPF style record.
func (p *Policy) Record() string {
	parts := make([]string, 0, len(p.Terms)+1)
	parts = append(parts, "v=spf4peppol")
	for _, t := range p.Terms {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, " ")
}

func (p *Policy) ttlString() string {
	if p.TTL == nil {
		return "default"
	}
	return strconv.Itoa(*p.TTL)
}
