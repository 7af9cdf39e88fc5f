package steamworks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"game-sync/core/reconcile"
	"game-sync/feature/game"
	gamemodels "game-sync/feature/game/models"
	imodels "game-sync/feature/integration/models"
	lbmodels "game-sync/feature/leaderboard/models"
	"game-sync/feature/steamworks/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// SyncLeaderboards reconciles all of the game's leaderboards against Steam:
// matches boards by mapping then by name, creates the missing side on
// either end, pulls remote entries in, and pushes unseen local entries out.
// A malformed remote list fails the whole run; everything below that is
// per-record isolated.
func (s *Service) SyncLeaderboards(ctx context.Context, it *imodels.Integration) (*reconcile.Report, error) {
	report := reconcile.NewReport()

	api, err := s.apiFor(it)
	if err != nil {
		return nil, err
	}

	var (
		remote []models.RemoteLeaderboard
		locals []lbmodels.Leaderboard
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		boards, record, err := api.getLeaderboardsForGame(gctx)
		s.recordEvent(s.db, it.ID, record)
		if err != nil {
			return err
		}
		remote = boards
		return nil
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Where("game_id = ?", it.GameID).Find(&locals).Error
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	remoteByID := make(map[int64]models.RemoteLeaderboard, len(remote))
	remoteByName := make(map[string]models.RemoteLeaderboard, len(remote))
	for _, rl := range remote {
		remoteByID[rl.ID] = rl
		remoteByName[rl.Name] = rl
	}

	// Match every local leaderboard by mapping first, then by exact name.
	matched := make(map[int64]struct{})
	for i := range locals {
		local := &locals[i]
		reconcile.InTx(s.db, report, fmt.Sprintf("leaderboard %s", local.InternalName), func(tx *gorm.DB) error {
			return s.reconcileLocalLeaderboard(ctx, tx, api, it, local, remoteByID, remoteByName, matched, report)
		})
	}

	// Remote leaderboards with no local counterpart become local ones.
	for _, rl := range remote {
		if _, ok := matched[rl.ID]; ok {
			continue
		}
		rl := rl
		reconcile.InTx(s.db, report, fmt.Sprintf("remote leaderboard %s", rl.Name), func(tx *gorm.DB) error {
			return s.createLocalLeaderboard(tx, it, rl, report)
		})
	}

	// Pull, then push. Entries touched by the pull land in the synced set
	// so the push pass does not immediately send them back.
	synced := make(map[uint]struct{})
	for _, rl := range remote {
		s.pullEntries(ctx, api, it, rl, synced, report)
	}
	s.pushEntries(ctx, api, it, synced, report)

	report.Finish()
	return report, nil
}

// reconcileLocalLeaderboard handles one local leaderboard inside its own
// transaction.
func (s *Service) reconcileLocalLeaderboard(
	ctx context.Context,
	tx *gorm.DB,
	api *api,
	it *imodels.Integration,
	local *lbmodels.Leaderboard,
	remoteByID map[int64]models.RemoteLeaderboard,
	remoteByName map[string]models.RemoteLeaderboard,
	matched map[int64]struct{},
	report *reconcile.Report,
) error {
	mapping, err := findMappingByLeaderboardID(tx, local.ID)
	if err != nil {
		return err
	}

	var rl *models.RemoteLeaderboard
	if mapping != nil {
		if found, ok := remoteByID[mapping.SteamworksLeaderboardID]; ok {
			rl = &found
		}
	}
	if rl == nil {
		if found, ok := remoteByName[local.InternalName]; ok {
			rl = &found
		}
	}

	if rl == nil {
		// Local only: create remotely and persist the returned id.
		created, record, err := api.findOrCreateLeaderboard(ctx, local.InternalName, local.SortMode)
		s.recordEvent(tx, it.ID, record)
		if err != nil {
			return err
		}
		matched[created.ID] = struct{}{}
		if _, _, err := upsertMapping(tx, created.ID, local.ID); err != nil {
			return err
		}
		report.MappingsCreated++
		return nil
	}

	matched[rl.ID] = struct{}{}
	_, created, err := upsertMapping(tx, rl.ID, local.ID)
	if err != nil {
		return err
	}
	if created {
		report.MappingsCreated++
	}

	// The remote side is authoritative for naming and ordering, and a
	// Steam leaderboard keeps one live score per user, which implies
	// local uniqueness semantics.
	local.InternalName = rl.Name
	local.Name = rl.Name
	local.SortMode = localSortMode(rl.SortMethod)
	local.Unique = true
	if err := tx.Save(local).Error; err != nil {
		return fmt.Errorf("failed to update leaderboard: %w", err)
	}
	report.LeaderboardsUpdated++
	return nil
}

// createLocalLeaderboard materializes a remote-only leaderboard locally.
func (s *Service) createLocalLeaderboard(tx *gorm.DB, it *imodels.Integration, rl models.RemoteLeaderboard, report *reconcile.Report) error {
	existing, err := findMappingByRemoteID(tx, rl.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	lb := lbmodels.Leaderboard{
		GameID:       it.GameID,
		InternalName: rl.Name,
		Name:         rl.Name,
		SortMode:     localSortMode(rl.SortMethod),
		Unique:       true,
	}
	if err := tx.Create(&lb).Error; err != nil {
		return fmt.Errorf("failed to create leaderboard: %w", err)
	}
	if _, _, err := upsertMapping(tx, rl.ID, lb.ID); err != nil {
		return err
	}
	report.LeaderboardsCreated++
	report.MappingsCreated++
	return nil
}

// pullEntries ingests all remote entries of one leaderboard. Each remote
// entry is processed in its own transaction; a failure is captured and the
// pass moves on.
func (s *Service) pullEntries(ctx context.Context, api *api, it *imodels.Integration, rl models.RemoteLeaderboard, synced map[uint]struct{}, report *reconcile.Report) {
	mapping, err := findMappingByRemoteID(s.db, rl.ID)
	if err != nil {
		report.Failf(err, "remote leaderboard %s", rl.Name)
		return
	}
	if mapping == nil {
		return
	}

	for start := 0; ; start += pullPageSize {
		entries, record, err := api.getLeaderboardEntries(ctx, rl.ID, start, start+pullPageSize-1)
		s.recordEvent(s.db, it.ID, record)
		if err != nil {
			report.Failf(err, "remote leaderboard %s entries", rl.Name)
			return
		}
		if len(entries) == 0 {
			return
		}

		for _, re := range entries {
			re := re
			reconcile.InTx(s.db, report, fmt.Sprintf("remote entry %s on %s", re.SteamID, rl.Name), func(tx *gorm.DB) error {
				return s.ingestRemoteEntry(tx, it, mapping, re, synced, report)
			})
		}

		if len(entries) < pullPageSize {
			return
		}
	}
}

// ingestRemoteEntry writes one remote score into the local store: an
// existing live entry is overwritten in place, an unknown Steam user gets a
// fresh player, alias and entry.
func (s *Service) ingestRemoteEntry(tx *gorm.DB, it *imodels.Integration, mapping *models.LeaderboardMapping, re models.RemoteLeaderboardEntry, synced map[uint]struct{}, report *reconcile.Report) error {
	alias, err := game.FindAlias(tx, it.GameID, gamemodels.ServiceSteam, re.SteamID)
	if err != nil {
		return err
	}

	if alias != nil {
		var entry lbmodels.LeaderboardEntry
		err := tx.Where("leaderboard_id = ? AND player_alias_id = ?", mapping.LeaderboardID, alias.ID).
			Order("created_at DESC, id DESC").
			First(&entry).Error
		if err == nil {
			entry.Score = float64(re.Score)
			if err := tx.Save(&entry).Error; err != nil {
				return fmt.Errorf("failed to overwrite entry: %w", err)
			}
			if err := upsertEntryLink(tx, mapping.ID, re.SteamID, &entry.ID); err != nil {
				return err
			}
			synced[entry.ID] = struct{}{}
			report.Pulled++
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load entry: %w", err)
		}
	} else {
		alias, err = game.CreatePlayerWithAlias(tx, it.GameID, gamemodels.ServiceSteam, re.SteamID)
		if err != nil {
			return err
		}
	}

	entry := lbmodels.LeaderboardEntry{
		LeaderboardID: mapping.LeaderboardID,
		PlayerAliasID: alias.ID,
		Score:         float64(re.Score),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}
	if err := upsertEntryLink(tx, mapping.ID, re.SteamID, &entry.ID); err != nil {
		return err
	}
	synced[entry.ID] = struct{}{}
	report.Pulled++
	return nil
}

// pushEntries streams every mapped leaderboard's local entries and pushes
// the ones the pull pass did not already cover. Pushes are paced to stay
// under Steam's rate limits.
func (s *Service) pushEntries(ctx context.Context, api *api, it *imodels.Integration, synced map[uint]struct{}, report *reconcile.Report) {
	var mappings []models.LeaderboardMapping
	err := s.db.WithContext(ctx).
		Joins("Leaderboard").
		Where("Leaderboard.game_id = ?", it.GameID).
		Find(&mappings).Error
	if err != nil {
		report.Failf(err, "leaderboard mappings")
		return
	}

	pushed := 0
	for _, mapping := range mappings {
		mapping := mapping
		err := s.entries.StreamEntries(ctx, mapping.LeaderboardID, pushPageSize, func(entry lbmodels.LeaderboardEntry) (bool, error) {
			if _, ok := synced[entry.ID]; ok {
				return true, nil
			}
			if entry.PlayerAlias.Service != gamemodels.ServiceSteam {
				return true, nil
			}

			record, err := api.setLeaderboardScore(ctx, mapping.SteamworksLeaderboardID, entry.PlayerAlias.Identifier, int64(entry.Score))
			s.recordEvent(s.db, it.ID, record)
			if err != nil {
				report.Failf(err, "entry %d", entry.ID)
				s.logger.Warn("Failed to push entry",
					zap.Uint("entry_id", entry.ID),
					zap.Int64("steamworks_leaderboard_id", mapping.SteamworksLeaderboardID),
					zap.Error(err))
				return true, nil
			}
			if err := upsertEntryLink(s.db, mapping.ID, entry.PlayerAlias.Identifier, &entry.ID); err != nil {
				report.Failf(err, "entry %d link", entry.ID)
				return true, nil
			}

			report.Pushed++
			pushed++
			return true, s.pace(ctx, pushed)
		})
		if err != nil {
			report.Failf(err, "leaderboard %d push", mapping.LeaderboardID)
		}
	}
}

// pace inserts a short pause after every push batch.
func (s *Service) pace(ctx context.Context, pushed int) error {
	if s.cfg.PushBatchSize <= 0 || s.cfg.PushPauseMS <= 0 {
		return nil
	}
	if pushed%s.cfg.PushBatchSize != 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(s.cfg.PushPauseMS) * time.Millisecond):
		return nil
	}
}
