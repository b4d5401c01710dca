package metrics

import (
	"context"
	"fmt"

	"github.com/futig/dashboard-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// The single-row mutations below are apply-after-confirm: the upstream
// call runs first, and the local snapshot is patched only once it has
// succeeded. A failed call leaves local state untouched, so no
// rollback path exists or is needed.

// SetIgnoreStatus flips the ignore flag upstream, then patches the row.
func (uc *Usecase) SetIgnoreStatus(ctx context.Context, userID string, ignore bool) error {
	if err := uc.mutator.UpdateIgnoreStatus(ctx, userID, ignore); err != nil {
		return fmt.Errorf("set ignore status: %w", err)
	}

	uc.ApplyUserPatch(userID, entity.UserPatch{IgnoreUser: &ignore})

	ctxzap.Info(ctx, "user ignore status updated",
		zap.String("user_id", userID),
		zap.Bool("ignore", ignore),
	)

	return nil
}

// SetNotes replaces the notes upstream, then patches the row.
func (uc *Usecase) SetNotes(ctx context.Context, userID, notes string) error {
	if err := uc.mutator.UpdateNotes(ctx, userID, notes); err != nil {
		return fmt.Errorf("set notes: %w", err)
	}

	uc.ApplyUserPatch(userID, entity.UserPatch{Notes: &notes})

	ctxzap.Info(ctx, "user notes updated", zap.String("user_id", userID))

	return nil
}

// SetExtensionVersion records the extension version upstream, then
// patches the row.
func (uc *Usecase) SetExtensionVersion(ctx context.Context, userID, version string) error {
	if err := uc.mutator.UpdateExtensionVersion(ctx, userID, version); err != nil {
		return fmt.Errorf("set extension version: %w", err)
	}

	uc.ApplyUserPatch(userID, entity.UserPatch{ExtensionVersion: &version})

	ctxzap.Info(ctx, "user extension version updated",
		zap.String("user_id", userID),
		zap.String("version", version),
	)

	return nil
}

// ApplyUserPatch replaces exactly one user record inside the held
// center → users structure, preserving array order and every sibling
// record. Center aggregates (counts, averages) are deliberately NOT
// recomputed: the upstream service owns them, and a local recompute
// could silently diverge from server truth. They stay stale until the
// next full refresh.
//
// The patch is copy-on-write: snapshots already handed to readers are
// never written to, so a handler can marshal one after the lock is
// released. Only the path down to the patched record is cloned; every
// other center and sibling record shares the existing backing arrays.
func (uc *Usecase) ApplyUserPatch(userID string, patch entity.UserPatch) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.snapshot == nil {
		return false
	}

	for ci := range uc.snapshot.CenterAnalytics.CentersData {
		users := uc.snapshot.CenterAnalytics.CentersData[ci].Users
		for ui := range users {
			if users[ui].UserID != userID {
				continue
			}

			next := *uc.snapshot
			next.CenterAnalytics.CentersData = append([]entity.CenterAnalyticsSummary(nil),
				uc.snapshot.CenterAnalytics.CentersData...)
			patched := append([]entity.UserAnalyticsDetail(nil), users...)

			user := patched[ui]
			if patch.IgnoreUser != nil {
				user.IgnoreUser = *patch.IgnoreUser
			}
			if patch.Notes != nil {
				notes := *patch.Notes
				user.Notes = &notes
			}
			if patch.ExtensionVersion != nil {
				version := *patch.ExtensionVersion
				user.CurrExtensionVersion = &version
			}
			patched[ui] = user

			next.CenterAnalytics.CentersData[ci].Users = patched
			uc.snapshot = &next
			return true
		}
	}

	return false
}
