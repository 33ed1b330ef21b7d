package api

import (
	"time"

	"smp/internal/businesscard"
	"smp/internal/identifier"
	"smp/internal/redirect"
	"smp/internal/servicegroup"
	"smp/internal/serviceinfo"
	"smp/internal/spf"
)

type DocumentTypeRef struct {
	Scheme string `json:"scheme"`
	Value  string `json:"value"`
	Href   string `json:"href"`
}

type PropertyResponse struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type ServiceGroupResponse struct {
	ParticipantID    identifier.Participant `json:"participant_id"`
	Extension        string                 `json:"extension,omitempty"`
	CustomProperties []PropertyResponse     `json:"custom_properties,omitempty"`
	DocumentTypes    []DocumentTypeRef      `json:"document_types"`
	DNSName          string                 `json:"dns_name,omitempty"`
}

// FromServiceGroup only exposes public custom properties.
func FromServiceGroup(sg *servicegroup.ServiceGroup, docTypes []identifier.DocumentType, dnsName string) ServiceGroupResponse {
	resp := ServiceGroupResponse{
		ParticipantID: sg.Participant,
		Extension:     sg.Extension,
		DocumentTypes: make([]DocumentTypeRef, 0, len(docTypes)),
		DNSName:       dnsName,
	}
	for _, p := range sg.CustomProperties {
		if p.Type == servicegroup.PropertyPublic {
			resp.CustomProperties = append(resp.CustomProperties, PropertyResponse{Name: p.Name, Value: p.Value})
		}
	}
	base := "/api/v1/servicegroups/" + sg.Participant.URIPercentEncoded() + "/services/"
	for _, dt := range docTypes {
		resp.DocumentTypes = append(resp.DocumentTypes, DocumentTypeRef{
			Scheme: dt.Scheme,
			Value:  dt.Value,
			Href:   base + dt.URIPercentEncoded(),
		})
	}
	return resp
}

type EndpointResponse struct {
	TransportProfile        string     `json:"transport_profile"`
	Address                 string     `json:"address"`
	RequireSignature        bool       `json:"require_signature"`
	ActivationTime          *time.Time `json:"activation_time,omitempty"`
	ExpirationTime          *time.Time `json:"expiration_time,omitempty"`
	Certificate             string     `json:"certificate,omitempty"`
	Description             string     `json:"description,omitempty"`
	TechnicalContactURL     string     `json:"technical_contact_url,omitempty"`
	TechnicalInformationURL string     `json:"technical_information_url,omitempty"`
}

type ProcessResponse struct {
	ProcessID identifier.Process `json:"process_id"`
	Endpoints []EndpointResponse `json:"endpoints"`
}

type RedirectResponse struct {
	TargetHref      string `json:"target_href"`
	SubjectUniqueID string `json:"subject_unique_id"`
	Certificate     string `json:"certificate,omitempty"`
}

// ServiceMetadataResponse carries either the processes or a redirect.
type ServiceMetadataResponse struct {
	ParticipantID identifier.Participant  `json:"participant_id"`
	DocumentType  identifier.DocumentType `json:"document_type"`
	Processes     []ProcessResponse       `json:"processes,omitempty"`
	Redirect      *RedirectResponse       `json:"redirect,omitempty"`
}

// FromServiceInformation drops endpoints that are not active at now.
func FromServiceInformation(pid identifier.Participant, si *serviceinfo.ServiceInformation, now time.Time) ServiceMetadataResponse {
	resp := ServiceMetadataResponse{ParticipantID: pid, DocumentType: si.DocumentType}
	for _, p := range si.Processes {
		pr := ProcessResponse{ProcessID: p.ID, Endpoints: []EndpointResponse{}}
		for _, e := range p.Endpoints {
			if !e.IsActiveAt(now) {
				continue
			}
			pr.Endpoints = append(pr.Endpoints, EndpointResponse{
				TransportProfile:        e.TransportProfile,
				Address:                 e.Address,
				RequireSignature:        e.RequireSignature,
				ActivationTime:          e.ActivationTime,
				ExpirationTime:          e.ExpirationTime,
				Certificate:             e.Certificate,
				Description:             e.Description,
				TechnicalContactURL:     e.TechnicalContactURL,
				TechnicalInformationURL: e.TechnicalInformationURL,
			})
		}
		resp.Processes = append(resp.Processes, pr)
	}
	return resp
}

func FromRedirect(pid identifier.Participant, r *redirect.Redirect) ServiceMetadataResponse {
	return ServiceMetadataResponse{
		ParticipantID: pid,
		DocumentType:  r.DocumentType,
		Redirect: &RedirectResponse{
			TargetHref:      r.TargetHref,
			SubjectUniqueID: r.SubjectUniqueID,
			Certificate:     r.Certificate,
		},
	}
}

type TermResponse struct {
	Qualifier spf.Qualifier `json:"qualifier"`
	Mechanism spf.Mechanism `json:"mechanism"`
	Value     string        `json:"value,omitempty"`
}

type SPFPolicyResponse struct {
	ParticipantID identifier.Participant `json:"participant_id"`
	Record        string                 `json:"record"`
	TTL           int                    `json:"ttl"`
	Terms         []TermResponse         `json:"terms"`
	Explanation   string                 `json:"explanation,omitempty"`
}

func FromPolicy(p *spf.Policy) SPFPolicyResponse {
	resp := SPFPolicyResponse{
		ParticipantID: p.ParticipantID,
		Record:        p.Record(),
		TTL:           p.EffectiveTTL(),
		Terms:         make([]TermResponse, 0, len(p.Terms)),
		Explanation:   p.Explanation,
	}
	for _, t := range p.Terms {
		resp.Terms = append(resp.Terms, TermResponse{Qualifier: t.Qualifier, Mechanism: t.Mechanism, Value: t.Value})
	}
	return resp
}

type BusinessCardResponse struct {
	ParticipantID string                `json:"participant_id"`
	Entities      []businesscard.Entity `json:"entities"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
}
