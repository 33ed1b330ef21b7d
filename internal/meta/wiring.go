package meta

import (
	"context"
	"errors"
	"fmt"

	"smp/internal/businesscard"
	"smp/internal/identifier"
	"smp/internal/servicegroup"
	"smp/pkg/domain"
)

// System migration IDs.
const (
	MigrationSeedSMLInfos            = "seed-sml-infos"
	MigrationSeedTransportProfiles   = "seed-transport-profiles"
	MigrationEnsureTransportProfiles = "ensure-transport-profiles"
)

func (a *App) wireCallbacks() {
	a.groups.Callbacks().Add(servicegroup.CallbackFuncs{
		Deleted: a.cascadeServiceGroupDelete,
	})

	if a.businessCards != nil {
		a.businessCards.Callbacks().Add(businesscard.CallbackFuncs{
			CreatedOrUpdated: a.logDirectoryUpdate,
			Deleted:          a.logDirectoryUpdate,
		})
	}
}

// cascadeServiceGroupDelete removes every record that belongs to a deleted
// service group. Each target is attempted even if an earlier one fails.
func (a *App) cascadeServiceGroupDelete(ctx context.Context, pid identifier.Participant, _ bool) error {
	sgID := servicegroup.IDOf(pid)
	var errs []error
	step := func(target string, fn func() (domain.Change, error)) {
		change, err := fn()
		if err != nil {
			a.metrics.IncCascadeFailure(target)
			a.logger.ErrorContext(ctx, "cascading service group delete failed",
				"participant_id", sgID,
				"target", target,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", target, err))
			return
		}
		if change.IsChanged() {
			a.logger.DebugContext(ctx, "cascaded service group delete", "participant_id", sgID, "target", target)
		}
	}

	step("redirect", func() (domain.Change, error) {
		return a.redirects.DeleteAllOfServiceGroup(ctx, sgID)
	})
	step("serviceinformation", func() (domain.Change, error) {
		return a.serviceInfos.DeleteAllOfServiceGroup(ctx, sgID)
	})
	if a.businessCards != nil {
		sync := a.settings.Get().DirectoryIntegrationEnabled
		step("businesscard", func() (domain.Change, error) {
			return a.businessCards.DeleteOfServiceGroup(ctx, sgID, sync)
		})
	}
	if a.spfPolicies != nil {
		step("spf4peppol-policy", func() (domain.Change, error) {
			return a.spfPolicies.DeleteOfServiceGroup(ctx, pid)
		})
	}
	step("participant-migration", func() (domain.Change, error) {
		return a.migrations.DeleteAllOfParticipant(ctx, pid)
	})
	return errors.Join(errs...)
}

// logDirectoryUpdate only logs that the directory is due a business card
// update. Nothing here pushes to the directory.
func (a *App) logDirectoryUpdate(ctx context.Context, bc *businesscard.BusinessCard, syncToDirectory bool) error {
	s := a.settings.Get()
	if !syncToDirectory || !s.DirectoryIntegrationEnabled || !s.DirectoryAutoUpdate {
		return nil
	}
	a.logger.InfoContext(ctx, "directory update requested",
		"participant_id", bc.ID,
		"directory", s.DirectoryHostname,
	)
	return nil
}

// runSystemMigrations applies the one-time data migrations. A failed
// migration is logged and retried on the next start.
func (a *App) runSystemMigrations(ctx context.Context) {
	steps := []struct {
		id string
		fn func(context.Context) error
	}{
		{MigrationSeedSMLInfos, func(ctx context.Context) error {
			_, err := a.smlInfos.SeedDefaults(ctx)
			return err
		}},
		{MigrationSeedTransportProfiles, func(ctx context.Context) error {
			_, err := a.profiles.SeedDefaults(ctx)
			return err
		}},
		{MigrationEnsureTransportProfiles, a.ensureTransportProfiles},
	}
	for _, s := range steps {
		if _, err := a.sysMigrations.RunOnce(ctx, s.id, s.fn); err != nil {
			a.logger.ErrorContext(ctx, "system migration failed", "migration_id", s.id, "error", err)
		}
	}
}

// ensureTransportProfiles creates a profile for every transport profile ID an
// endpoint references but the registry does not know.
func (a *App) ensureTransportProfiles(ctx context.Context) error {
	var errs []error
	for _, id := range a.serviceInfos.AllTransportProfiles() {
		if _, err := a.profiles.EnsureExists(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
