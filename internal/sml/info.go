// Package sml manages the SML instances this registry can register
// participants in, and guards the registration hook used by service groups.
package sml

import (
	"net/url"
	"strings"

	dErrors "smp/pkg/domain-errors"
)

const (
	DefaultManageSMPSuffix         = "/manageservicemetadata"
	DefaultManageParticipantSuffix = "/manageparticipantidentifier"
)

// Info describes one SML instance.
type Info struct {
	ID                        string `json:"id"`
	DisplayName               string `json:"display_name"`
	DNSZone                   string `json:"dns_zone"`
	ManagementServiceURL      string `json:"management_service_url"`
	ManageSMPSuffix           string `json:"manage_smp_suffix"`
	ManageParticipantSuffix   string `json:"manage_participant_suffix"`
	ClientCertificateRequired bool   `json:"client_certificate_required"`
}

// Defaults are the Peppol production (SML) and acceptance (SMK) instances.
func Defaults() []*Info {
	return []*Info{
		{
			ID:                        "digitprod",
			DisplayName:               "SML",
			DNSZone:                   "edelivery.tech.ec.europa.eu.",
			ManagementServiceURL:      "https://edelivery.tech.ec.europa.eu/edelivery-sml",
			ManageSMPSuffix:           DefaultManageSMPSuffix,
			ManageParticipantSuffix:   DefaultManageParticipantSuffix,
			ClientCertificateRequired: true,
		},
		{
			ID:                        "digittest",
			DisplayName:               "SMK",
			DNSZone:                   "acc.edelivery.tech.ec.europa.eu.",
			ManagementServiceURL:      "https://acc.edelivery.tech.ec.europa.eu/edelivery-sml",
			ManageSMPSuffix:           DefaultManageSMPSuffix,
			ManageParticipantSuffix:   DefaultManageParticipantSuffix,
			ClientCertificateRequired: true,
		},
	}
}

func (i *Info) StoreID() string { return i.ID }

func (i *Info) Clone() *Info {
	c := *i
	return &c
}

func (i *Info) normalize() {
	i.DisplayName = strings.TrimSpace(i.DisplayName)
	i.DNSZone = strings.ToLower(strings.TrimSpace(i.DNSZone))
	if i.DNSZone != "" && !strings.HasSuffix(i.DNSZone, ".") {
		i.DNSZone += "."
	}
	i.ManagementServiceURL = strings.TrimRight(strings.TrimSpace(i.ManagementServiceURL), "/")
	if i.ManageSMPSuffix == "" {
		i.ManageSMPSuffix = DefaultManageSMPSuffix
	}
	if i.ManageParticipantSuffix == "" {
		i.ManageParticipantSuffix = DefaultManageParticipantSuffix
	}
}

func (i *Info) Validate() error {
	switch {
	case i.ID == "":
		return dErrors.New(dErrors.CodeValidation, "SML info ID is required")
	case i.DisplayName == "":
		return dErrors.New(dErrors.CodeValidation, "SML display name is required")
	case i.DNSZone == "":
		return dErrors.New(dErrors.CodeValidation, "SML DNS zone is required")
	}
	u, err := url.Parse(i.ManagementServiceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return dErrors.Newf(dErrors.CodeValidation, "SML management service URL %q is not an http(s) URL", i.ManagementServiceURL)
	}
	return nil
}

// ManageSMPAddress is the endpoint for SMP registration calls.
func (i *Info) ManageSMPAddress() string {
	return i.ManagementServiceURL + i.ManageSMPSuffix
}

// ManageParticipantAddress is the endpoint for participant registration calls.
func (i *Info) ManageParticipantAddress() string {
	return i.ManagementServiceURL + i.ManageParticipantSuffix
}
