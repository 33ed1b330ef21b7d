package identifier

import (
	"fmt"
	"regexp"
	"strings"

	dErrors "smp/pkg/domain-errors"
)

// Factory parses identifiers and brings them into canonical form. Equality of
// identifiers is only meaningful between canonical values.
type Factory interface {
	// Name is the configuration tag of the factory.
	Name() string

	ParseParticipant(s string) (Participant, error)
	ParseDocumentType(s string) (DocumentType, error)
	ParseProcess(s string) (Process, error)

	// CreateParticipant validates and canonicalizes a scheme/value pair.
	CreateParticipant(scheme, value string) (Participant, error)
	CreateDocumentType(scheme, value string) (DocumentType, error)
	CreateProcess(scheme, value string) (Process, error)

	// CloneParticipant returns the canonical form of an existing identifier.
	CloneParticipant(p Participant) (Participant, error)
	CloneDocumentType(d DocumentType) (DocumentType, error)
	CloneProcess(p Process) (Process, error)
}

// Factory kinds accepted by New.
const (
	KindPeppol = "peppol"
	KindBDXR   = "bdxr"
	KindSimple = "simple"
)

// New resolves a factory from its configuration tag.
func New(kind string) (Factory, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindPeppol:
		return newRuleFactory(peppolRules), nil
	case KindBDXR, "bdxr1", "bdxr2":
		return newRuleFactory(bdxrRules), nil
	case KindSimple:
		return newRuleFactory(simpleRules), nil
	default:
		return nil, dErrors.Newf(dErrors.CodeInitialization, "unknown identifier type %q", kind)
	}
}

// rules captures the per-scheme constraints of one identifier flavour.
type rules struct {
	name string

	schemeRequired bool
	maxSchemeLen   int

	participantScheme *regexp.Regexp
	documentScheme    *regexp.Regexp
	processScheme     *regexp.Regexp

	maxParticipantLen int
	maxDocumentLen    int
	maxProcessLen     int

	// caseInsensitiveParticipantSchemes lists schemes whose values compare
	// case-insensitively and are therefore lower-cased.
	caseInsensitiveParticipantSchemes map[string]bool
	// participantValue validates values of specific participant schemes.
	participantValue map[string]*regexp.Regexp
}

const schemeISO6523 = "iso6523-actorid-upis"

var (
	peppolRules = rules{
		name:              KindPeppol,
		schemeRequired:    true,
		maxSchemeLen:      25,
		participantScheme: regexp.MustCompile(`^[a-z0-9]+-actorid-[a-z0-9]+$`),
		documentScheme:    regexp.MustCompile(`^[a-z0-9]+-(docid|doctype)-[a-z0-9]+$`),
		processScheme:     regexp.MustCompile(`^[a-z0-9]+-procid-[a-z0-9]+$`),
		maxParticipantLen: 50,
		maxDocumentLen:    500,
		maxProcessLen:     200,
		caseInsensitiveParticipantSchemes: map[string]bool{
			schemeISO6523: true,
		},
		participantValue: map[string]*regexp.Regexp{
			schemeISO6523: regexp.MustCompile(`^[0-9]{4}:[^\s]+$`),
		},
	}

	bdxrRules = rules{
		name:              KindBDXR,
		maxSchemeLen:      100,
		maxParticipantLen: 256,
		maxDocumentLen:    1000,
		maxProcessLen:     1000,
		caseInsensitiveParticipantSchemes: map[string]bool{
			schemeISO6523: true,
		},
	}

	simpleRules = rules{
		name: KindSimple,
	}
)

type ruleFactory struct {
	r rules
}

func newRuleFactory(r rules) *ruleFactory {
	return &ruleFactory{r: r}
}

func (f *ruleFactory) Name() string { return f.r.name }

func (f *ruleFactory) ParseParticipant(s string) (Participant, error) {
	scheme, value, err := f.parse("participant", s)
	if err != nil {
		return Participant{}, err
	}
	return f.CreateParticipant(scheme, value)
}

func (f *ruleFactory) ParseDocumentType(s string) (DocumentType, error) {
	scheme, value, err := f.parse("document type", s)
	if err != nil {
		return DocumentType{}, err
	}
	return f.CreateDocumentType(scheme, value)
}

func (f *ruleFactory) ParseProcess(s string) (Process, error) {
	scheme, value, err := f.parse("process", s)
	if err != nil {
		return Process{}, err
	}
	return f.CreateProcess(scheme, value)
}

func (f *ruleFactory) parse(kind, s string) (string, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", dErrors.Newf(dErrors.CodeInvalidInput, "%s identifier is required", kind)
	}
	scheme, value, ok := split(s)
	if !ok {
		if f.r.schemeRequired {
			return "", "", dErrors.Newf(dErrors.CodeInvalidInput, "%s identifier %q lacks a scheme", kind, s)
		}
		return "", s, nil
	}
	return scheme, value, nil
}

func (f *ruleFactory) CreateParticipant(scheme, value string) (Participant, error) {
	scheme = strings.ToLower(strings.TrimSpace(scheme))
	value = strings.TrimSpace(value)
	if err := f.checkScheme("participant", scheme, f.r.participantScheme); err != nil {
		return Participant{}, err
	}
	if f.r.caseInsensitiveParticipantSchemes[scheme] {
		value = strings.ToLower(value)
	}
	if err := checkValue("participant", value, f.r.maxParticipantLen); err != nil {
		return Participant{}, err
	}
	if re, ok := f.r.participantValue[scheme]; ok && !re.MatchString(value) {
		return Participant{}, dErrors.Newf(dErrors.CodeInvalidInput, "participant value %q is invalid for scheme %s", value, scheme)
	}
	return Participant{Scheme: scheme, Value: value}, nil
}

func (f *ruleFactory) CreateDocumentType(scheme, value string) (DocumentType, error) {
	scheme = strings.TrimSpace(scheme)
	value = strings.TrimSpace(value)
	if err := f.checkScheme("document type", scheme, f.r.documentScheme); err != nil {
		return DocumentType{}, err
	}
	if err := checkValue("document type", value, f.r.maxDocumentLen); err != nil {
		return DocumentType{}, err
	}
	return DocumentType{Scheme: scheme, Value: value}, nil
}

func (f *ruleFactory) CreateProcess(scheme, value string) (Process, error) {
	scheme = strings.TrimSpace(scheme)
	value = strings.TrimSpace(value)
	if err := f.checkScheme("process", scheme, f.r.processScheme); err != nil {
		return Process{}, err
	}
	if err := checkValue("process", value, f.r.maxProcessLen); err != nil {
		return Process{}, err
	}
	return Process{Scheme: scheme, Value: value}, nil
}

func (f *ruleFactory) CloneParticipant(p Participant) (Participant, error) {
	return f.CreateParticipant(p.Scheme, p.Value)
}

func (f *ruleFactory) CloneDocumentType(d DocumentType) (DocumentType, error) {
	return f.CreateDocumentType(d.Scheme, d.Value)
}

func (f *ruleFactory) CloneProcess(p Process) (Process, error) {
	return f.CreateProcess(p.Scheme, p.Value)
}

func (f *ruleFactory) checkScheme(kind, scheme string, pattern *regexp.Regexp) error {
	if scheme == "" {
		if f.r.schemeRequired {
			return dErrors.Newf(dErrors.CodeInvalidInput, "%s scheme is required", kind)
		}
		return nil
	}
	if strings.HasSuffix(scheme, ":") || strings.Contains(scheme, separator) {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s scheme %q is malformed", kind, scheme)
	}
	if f.r.maxSchemeLen > 0 && len(scheme) > f.r.maxSchemeLen {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s scheme exceeds %d characters", kind, f.r.maxSchemeLen)
	}
	if pattern != nil && !pattern.MatchString(strings.ToLower(scheme)) {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s scheme %q is not allowed", kind, scheme)
	}
	return nil
}

func checkValue(kind, value string, maxLen int) error {
	if value == "" {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s value is required", kind)
	}
	if maxLen > 0 && len(value) > maxLen {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s value exceeds %d characters", kind, maxLen))
	}
	return nil
}
