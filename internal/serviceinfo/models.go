package serviceinfo

import (
	"slices"
	"strings"
	"time"

	"smp/internal/identifier"
	dErrors "smp/pkg/domain-errors"
)

// Endpoint is a technical address for receiving a document type under one
// process.
type Endpoint struct {
	TransportProfile        string     `json:"transport_profile"`
	Address                 string     `json:"address"`
	RequireSignature        bool       `json:"require_signature"`
	MinAuthenticationLevel  string     `json:"min_authentication_level,omitempty"`
	ActivationTime          *time.Time `json:"activation_time,omitempty"`
	ExpirationTime          *time.Time `json:"expiration_time,omitempty"`
	Certificate             string     `json:"certificate,omitempty"`
	Description             string     `json:"description,omitempty"`
	TechnicalContactURL     string     `json:"technical_contact_url,omitempty"`
	TechnicalInformationURL string     `json:"technical_information_url,omitempty"`
	Extension               string     `json:"extension,omitempty"`
}

func (e Endpoint) Validate() error {
	if strings.TrimSpace(e.TransportProfile) == "" {
		return dErrors.New(dErrors.CodeValidation, "endpoint transport profile is required")
	}
	if strings.TrimSpace(e.Address) == "" {
		return dErrors.Newf(dErrors.CodeValidation, "endpoint address is required for %s", e.TransportProfile)
	}
	if e.ActivationTime != nil && e.ExpirationTime != nil && e.ExpirationTime.Before(*e.ActivationTime) {
		return dErrors.Newf(dErrors.CodeValidation, "endpoint %s expires before it is activated", e.TransportProfile)
	}
	return nil
}

// IsActiveAt reports whether t lies inside the endpoint's validity window.
// Unset bounds are open.
func (e Endpoint) IsActiveAt(t time.Time) bool {
	if e.ActivationTime != nil && t.Before(*e.ActivationTime) {
		return false
	}
	if e.ExpirationTime != nil && t.After(*e.ExpirationTime) {
		return false
	}
	return true
}

// Process groups the endpoints of one process identifier. Endpoints are
// unique per transport profile.
type Process struct {
	ID        identifier.Process `json:"id"`
	Endpoints []Endpoint         `json:"endpoints"`
	Extension string             `json:"extension,omitempty"`
}

func (p Process) clone() Process {
	p.Endpoints = slices.Clone(p.Endpoints)
	return p
}

// Endpoint returns the endpoint of a transport profile.
func (p Process) Endpoint(transportProfile string) (Endpoint, bool) {
	i := p.endpointIndex(transportProfile)
	if i < 0 {
		return Endpoint{}, false
	}
	return p.Endpoints[i], true
}

func (p Process) endpointIndex(transportProfile string) int {
	return slices.IndexFunc(p.Endpoints, func(e Endpoint) bool { return e.TransportProfile == transportProfile })
}

func (p Process) Validate() error {
	if p.ID.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "process identifier is required")
	}
	seen := make(map[string]struct{}, len(p.Endpoints))
	for _, e := range p.Endpoints {
		if err := e.Validate(); err != nil {
			return err
		}
		if _, dup := seen[e.TransportProfile]; dup {
			return dErrors.Newf(dErrors.CodeValidation, "process %s has two endpoints for transport profile %s", p.ID, e.TransportProfile)
		}
		seen[e.TransportProfile] = struct{}{}
	}
	return nil
}

// mergeEndpoints replaces endpoints with a matching transport profile and
// appends the rest.
func (p *Process) mergeEndpoints(incoming []Endpoint) {
	for _, e := range incoming {
		if i := p.endpointIndex(e.TransportProfile); i >= 0 {
			p.Endpoints[i] = e
			continue
		}
		p.Endpoints = append(p.Endpoints, e)
	}
}

// ServiceInformation holds the processes and endpoints a service group
// supports for one document type.
//
// Invariants:
//   - ID is "<service group ID>-<document type URI>"
//   - at least one process; process IDs are unique
type ServiceInformation struct {
	ID             string                  `json:"id"`
	ServiceGroupID string                  `json:"service_group_id"`
	DocumentType   identifier.DocumentType `json:"document_type"`
	Processes      []Process               `json:"processes"`
	Extension      string                  `json:"extension,omitempty"`
}

// IDOf derives the ID of the record for a service group and document type.
func IDOf(serviceGroupID string, docType identifier.DocumentType) string {
	return serviceGroupID + "-" + docType.URIEncoded()
}

// NewServiceInformation validates and builds a record.
func NewServiceInformation(serviceGroupID string, docType identifier.DocumentType, processes []Process, extension string) (*ServiceInformation, error) {
	si := &ServiceInformation{
		ID:             IDOf(serviceGroupID, docType),
		ServiceGroupID: serviceGroupID,
		DocumentType:   docType,
		Processes:      processes,
		Extension:      extension,
	}
	if err := si.Validate(); err != nil {
		return nil, err
	}
	return si.Clone(), nil
}

func (si *ServiceInformation) StoreID() string { return si.ID }

func (si *ServiceInformation) Clone() *ServiceInformation {
	c := *si
	c.Processes = make([]Process, len(si.Processes))
	for i, p := range si.Processes {
		c.Processes[i] = p.clone()
	}
	return &c
}

func (si *ServiceInformation) Validate() error {
	if si.ServiceGroupID == "" {
		return dErrors.New(dErrors.CodeValidation, "service group ID is required")
	}
	if si.DocumentType.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "document type identifier is required")
	}
	if si.ID != IDOf(si.ServiceGroupID, si.DocumentType) {
		return dErrors.Newf(dErrors.CodeValidation, "service information ID %q does not match its key", si.ID)
	}
	if len(si.Processes) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one process is required")
	}
	seen := make(map[identifier.Process]struct{}, len(si.Processes))
	for _, p := range si.Processes {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := seen[p.ID]; dup {
			return dErrors.Newf(dErrors.CodeValidation, "duplicate process %s", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// Process returns the process with the given ID.
func (si *ServiceInformation) Process(id identifier.Process) (Process, bool) {
	i := si.processIndex(id)
	if i < 0 {
		return Process{}, false
	}
	return si.Processes[i], true
}

func (si *ServiceInformation) processIndex(id identifier.Process) int {
	return slices.IndexFunc(si.Processes, func(p Process) bool { return p.ID == id })
}

// EndpointCount is the total number of endpoints over all processes.
func (si *ServiceInformation) EndpointCount() int {
	n := 0
	for _, p := range si.Processes {
		n += len(p.Endpoints)
	}
	return n
}

// TransportProfiles returns every distinct transport profile referenced.
func (si *ServiceInformation) TransportProfiles() []string {
	var out []string
	for _, p := range si.Processes {
		for _, e := range p.Endpoints {
			if !slices.Contains(out, e.TransportProfile) {
				out = append(out, e.TransportProfile)
			}
		}
	}
	return out
}

// merge folds incoming into si: matching processes merge their endpoints by
// transport profile, new processes are appended.
func (si *ServiceInformation) merge(incoming *ServiceInformation) {
	for _, p := range incoming.Processes {
		if i := si.processIndex(p.ID); i >= 0 {
			si.Processes[i].mergeEndpoints(p.Endpoints)
			continue
		}
		si.Processes = append(si.Processes, p.clone())
	}
	if incoming.Extension != "" {
		si.Extension = incoming.Extension
	}
}

// deleteProcess removes a process and reports whether it was present.
func (si *ServiceInformation) deleteProcess(id identifier.Process) bool {
	i := si.processIndex(id)
	if i < 0 {
		return false
	}
	si.Processes = slices.Delete(si.Processes, i, i+1)
	return true
}
