package sml

import (
	"context"
	"log/slog"

	"smp/internal/identifier"
	"smp/internal/settings"
	dErrors "smp/pkg/domain-errors"
)

//go:generate mockgen -source=guard.go -destination=mocks/mocks.go -package=mocks

// Client performs the SML participant registration calls.
type Client interface {
	CreateParticipant(ctx context.Context, info *Info, smpID string, pid identifier.Participant) error
	DeleteParticipant(ctx context.Context, info *Info, smpID string, pid identifier.Participant) error
}

// SettingsSource exposes the current runtime settings.
type SettingsSource interface {
	Get() settings.Settings
}

// CertificateChecker reports whether the signing certificate may be used.
type CertificateChecker interface {
	IsCertificateValid() bool
}

// Guard is the service group registration hook. It forwards to the client
// only when SML is enabled in the settings, an SML instance is selected and
// the signing certificate is valid; otherwise it fails with CodeUnavailable.
type Guard struct {
	client   Client
	settings SettingsSource
	infos    *Manager
	keys     CertificateChecker
	smpID    string
	logger   *slog.Logger
}

// NewGuard builds the hook. client and keys may be nil, which disables SML
// operations.
func NewGuard(smpID string, client Client, src SettingsSource, infos *Manager, keys CertificateChecker, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{client: client, settings: src, infos: infos, keys: keys, smpID: smpID, logger: logger}
}

// Available returns the SML instance to use, or why none can be used.
func (g *Guard) Available() (*Info, error) {
	s := g.settings.Get()
	switch {
	case !s.SMLEnabled:
		return nil, dErrors.New(dErrors.CodeUnavailable, "SML integration is disabled")
	case g.client == nil:
		return nil, dErrors.New(dErrors.CodeUnavailable, "no SML client is configured")
	case g.keys == nil || !g.keys.IsCertificateValid():
		return nil, dErrors.New(dErrors.CodeUnavailable, "the SMP certificate is not usable for SML calls")
	case s.SMLInfoID == "":
		return nil, dErrors.New(dErrors.CodeUnavailable, "no SML instance is selected")
	}
	info, ok := g.infos.GetOfID(s.SMLInfoID)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeUnavailable, "selected SML instance %q does not exist", s.SMLInfoID)
	}
	return info, nil
}

func (g *Guard) CreateServiceGroup(ctx context.Context, pid identifier.Participant) error {
	return g.call(ctx, "create", pid, g.create)
}

func (g *Guard) UndoCreateServiceGroup(ctx context.Context, pid identifier.Participant) error {
	return g.call(ctx, "undo-create", pid, g.delete)
}

func (g *Guard) DeleteServiceGroup(ctx context.Context, pid identifier.Participant) error {
	return g.call(ctx, "delete", pid, g.delete)
}

func (g *Guard) UndoDeleteServiceGroup(ctx context.Context, pid identifier.Participant) error {
	return g.call(ctx, "undo-delete", pid, g.create)
}

func (g *Guard) create(ctx context.Context, info *Info, pid identifier.Participant) error {
	return g.client.CreateParticipant(ctx, info, g.smpID, pid)
}

func (g *Guard) delete(ctx context.Context, info *Info, pid identifier.Participant) error {
	return g.client.DeleteParticipant(ctx, info, g.smpID, pid)
}

func (g *Guard) call(ctx context.Context, op string, pid identifier.Participant, fn func(context.Context, *Info, identifier.Participant) error) error {
	info, err := g.Available()
	if err != nil {
		return err
	}
	if err := fn(ctx, info, pid); err != nil {
		g.logger.WarnContext(ctx, "SML call failed",
			"operation", op,
			"sml", info.DisplayName,
			"participant_id", pid.URIEncoded(),
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "SML "+op+" failed")
	}
	g.logger.InfoContext(ctx, "SML call succeeded",
		"operation", op,
		"sml", info.DisplayName,
		"participant_id", pid.URIEncoded(),
	)
	return nil
}
