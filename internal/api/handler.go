// Package api serves the read-only participant lookup API and the health and
// metrics endpoints.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"smp/internal/businesscard"
	"smp/internal/identifier"
	"smp/internal/redirect"
	"smp/internal/servicegroup"
	"smp/internal/serviceinfo"
	"smp/internal/settings"
	"smp/internal/sml"
	"smp/internal/spf"
	"smp/internal/urlprovider"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
	"smp/pkg/platform/httputil"
	"smp/pkg/requestcontext"
)

// Registry is the part of the application the API reads from.
type Registry interface {
	IdentifierFactory() identifier.Factory
	ServiceGroups() *servicegroup.Manager
	ServiceInformation() *serviceinfo.Manager
	Redirects() *redirect.Manager
	SPFPolicies() (*spf.Manager, bool)
	BusinessCards() (*businesscard.Manager, bool)
	Settings() *settings.Manager
	SMLInfos() *sml.Manager
	URLProvider() *urlprovider.Provider
	BackendName() string
	ProbeBackend(ctx context.Context) domain.TriState
}

// Handler wires lookup endpoints to the registry managers.
type Handler struct {
	registry Registry
	logger   *slog.Logger
}

func New(registry Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{registry: registry, logger: logger}
}

// Register mounts the lookup endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/servicegroups/{pid}", h.HandleServiceGroup)
		r.Get("/servicegroups/{pid}/services/{docType}", h.HandleServiceMetadata)
		r.Get("/servicegroups/{pid}/businesscard", h.HandleBusinessCard)
		r.Get("/spf/{pid}", h.HandleSPFPolicy)
	})
	r.Get("/healthz", h.HandleHealth)
	r.Get("/readyz", h.HandleReady)
}

// HandleServiceGroup handles GET /api/v1/servicegroups/{pid}.
func (h *Handler) HandleServiceGroup(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.participantParam(w, r)
	if !ok {
		return
	}
	sg, found := h.registry.ServiceGroups().GetOfID(pid)
	if !found {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "no service group for %s", pid))
		return
	}
	docTypes := h.registry.ServiceInformation().GetAllDocumentTypesOfServiceGroup(sg.ID)
	for _, rd := range h.registry.Redirects().GetAllOfServiceGroup(sg.ID) {
		docTypes = append(docTypes, rd.DocumentType)
	}
	httputil.WriteJSON(w, http.StatusOK, FromServiceGroup(sg, docTypes, h.dnsName(r.Context(), sg.Participant)))
}

// dnsName is the SML DNS name of pid, or empty when no SML is selected.
func (h *Handler) dnsName(ctx context.Context, pid identifier.Participant) string {
	infoID := h.registry.Settings().Get().SMLInfoID
	if infoID == "" {
		return ""
	}
	info, ok := h.registry.SMLInfos().GetOfID(infoID)
	if !ok {
		return ""
	}
	name, err := h.registry.URLProvider().DNSName(pid, info.DNSZone)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to derive DNS name",
			"request_id", requestcontext.RequestID(ctx),
			"participant_id", pid.URIEncoded(),
			"error", err,
		)
		return ""
	}
	return name
}

// HandleServiceMetadata handles GET /api/v1/servicegroups/{pid}/services/{docType}.
// A redirect takes precedence over local service information.
func (h *Handler) HandleServiceMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pid, ok := h.participantParam(w, r)
	if !ok {
		return
	}
	rawDocType, err := url.PathUnescape(chi.URLParam(r, "docType"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed document type"))
		return
	}
	docType, err := h.registry.IdentifierFactory().ParseDocumentType(rawDocType)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid document type identifier"))
		return
	}
	sg, found := h.registry.ServiceGroups().GetOfID(pid)
	if !found {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "no service group for %s", pid))
		return
	}

	if rd, ok := h.registry.Redirects().GetRedirectOfServiceGroup(sg.ID, docType); ok {
		httputil.WriteJSON(w, http.StatusOK, FromRedirect(sg.Participant, rd))
		return
	}
	si, ok := h.registry.ServiceInformation().GetOfServiceGroupAndDocumentType(sg.ID, docType)
	if !ok {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "%s does not support %s", pid, docType))
		return
	}
	client := requestcontext.ClientDevice(ctx)
	h.logger.DebugContext(ctx, "service metadata served",
		"request_id", requestcontext.RequestID(ctx),
		"participant_id", sg.ID,
		"doc_type", docType.URIEncoded(),
		"client_browser", client.Browser,
		"client_os", client.OS,
		"client_bot", client.Bot,
	)
	httputil.WriteJSON(w, http.StatusOK, FromServiceInformation(sg.Participant, si, requestcontext.Now(ctx)))
}

// HandleBusinessCard handles GET /api/v1/servicegroups/{pid}/businesscard.
func (h *Handler) HandleBusinessCard(w http.ResponseWriter, r *http.Request) {
	cards, enabled := h.registry.BusinessCards()
	if !enabled {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "business cards are disabled"))
		return
	}
	pid, ok := h.participantParam(w, r)
	if !ok {
		return
	}
	bc, found := cards.GetOfID(pid.URIEncoded())
	if !found {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "no business card for %s", pid))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BusinessCardResponse{ParticipantID: bc.ID, Entities: bc.Entities})
}

// HandleSPFPolicy handles GET /api/v1/spf/{pid}.
func (h *Handler) HandleSPFPolicy(w http.ResponseWriter, r *http.Request) {
	policies, enabled := h.registry.SPFPolicies()
	if !enabled {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "SPF policies are disabled"))
		return
	}
	pid, ok := h.participantParam(w, r)
	if !ok {
		return
	}
	p, found := policies.GetOfID(pid)
	if !found {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "no SPF policy for %s", pid))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPolicy(p))
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleReady probes the backend and fails while it is unreachable.
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	state := h.registry.ProbeBackend(r.Context())
	if state != domain.True {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Backend: h.registry.BackendName()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ready", Backend: h.registry.BackendName()})
}

func (h *Handler) participantParam(w http.ResponseWriter, r *http.Request) (identifier.Participant, bool) {
	raw, err := url.PathUnescape(chi.URLParam(r, "pid"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed participant identifier"))
		return identifier.Participant{}, false
	}
	pid, err := h.registry.IdentifierFactory().ParseParticipant(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid participant identifier"))
		return identifier.Participant{}, false
	}
	return pid, true
}
