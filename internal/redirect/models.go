package redirect

import (
	"cmp"
	"strings"

	"smp/internal/identifier"
	dErrors "smp/pkg/domain-errors"
)

// Redirect points senders to another registry for one service group and
// document type.
type Redirect struct {
	ID              string                  `json:"id"`
	ServiceGroupID  string                  `json:"service_group_id"`
	DocumentType    identifier.DocumentType `json:"document_type"`
	TargetHref      string                  `json:"target_href"`
	SubjectUniqueID string                  `json:"subject_unique_id"`
	Certificate     string                  `json:"certificate,omitempty"`
	Extension       string                  `json:"extension,omitempty"`
}

// IDOf derives the ID of the redirect for a service group and document type.
func IDOf(serviceGroupID string, docType identifier.DocumentType) string {
	return serviceGroupID + "-" + docType.URIEncoded()
}

// NewRedirect validates and builds a redirect.
func NewRedirect(serviceGroupID string, docType identifier.DocumentType, targetHref, subjectUniqueID, certificate, extension string) (*Redirect, error) {
	r := &Redirect{
		ID:              IDOf(serviceGroupID, docType),
		ServiceGroupID:  serviceGroupID,
		DocumentType:    docType,
		TargetHref:      strings.TrimSpace(targetHref),
		SubjectUniqueID: strings.TrimSpace(subjectUniqueID),
		Certificate:     certificate,
		Extension:       extension,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Redirect) StoreID() string { return r.ID }

func (r *Redirect) Clone() *Redirect {
	c := *r
	return &c
}

func (r *Redirect) Validate() error {
	switch {
	case r.ServiceGroupID == "":
		return dErrors.New(dErrors.CodeValidation, "service group ID is required")
	case r.DocumentType.IsZero():
		return dErrors.New(dErrors.CodeValidation, "document type identifier is required")
	case r.ID != IDOf(r.ServiceGroupID, r.DocumentType):
		return dErrors.Newf(dErrors.CodeValidation, "redirect ID %q does not match its key", r.ID)
	case r.TargetHref == "":
		return dErrors.New(dErrors.CodeValidation, "redirect target href is required")
	case r.SubjectUniqueID == "":
		return dErrors.New(dErrors.CodeValidation, "redirect subject unique ID is required")
	}
	return nil
}

// HasCertificate reports whether the target registry's certificate is pinned.
func (r *Redirect) HasCertificate() bool {
	return r.Certificate != ""
}

// Compare orders redirects by service group ID, then document type.
func Compare(a, b *Redirect) int {
	return cmp.Or(
		cmp.Compare(a.ServiceGroupID, b.ServiceGroupID),
		cmp.Compare(a.DocumentType.URIEncoded(), b.DocumentType.URIEncoded()),
	)
}

func (r *Redirect) equal(o *Redirect) bool {
	return *r == *o
}
