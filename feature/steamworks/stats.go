package steamworks

import (
	"context"
	"fmt"

	"game-sync/core/reconcile"
	"game-sync/feature/game"
	gamemodels "game-sync/feature/game/models"
	imodels "game-sync/feature/integration/models"
	statmodels "game-sync/feature/stat/models"
	"game-sync/feature/steamworks/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// remoteStatDefaultRateLimit is the per-player update interval, in seconds,
// applied to stats created from the Steam schema.
const remoteStatDefaultRateLimit = 60

// SyncStats reconciles the game's stat definitions and per-player values
// against Steam. The remote schema is authoritative for definitions; a
// malformed schema fails the whole run, everything below it is per-record
// isolated.
func (s *Service) SyncStats(ctx context.Context, it *imodels.Integration) (*reconcile.Report, error) {
	report := reconcile.NewReport()

	api, err := s.apiFor(it)
	if err != nil {
		return nil, err
	}

	var (
		remote []models.RemoteStat
		locals []statmodels.GameStat
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		schema, record, err := api.getSchemaForGame(gctx)
		s.recordEvent(s.db, it.ID, record)
		if err != nil {
			return err
		}
		remote = schema
		return nil
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Where("game_id = ?", it.GameID).Find(&locals).Error
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	localByName := make(map[string]*statmodels.GameStat, len(locals))
	for i := range locals {
		localByName[locals[i].InternalName] = &locals[i]
	}

	remoteNames := make(map[string]struct{}, len(remote))
	for _, rs := range remote {
		remoteNames[rs.Name] = struct{}{}
		rs := rs
		reconcile.InTx(s.db, report, fmt.Sprintf("stat %s", rs.Name), func(tx *gorm.DB) error {
			return s.reconcileStatDefinition(tx, it, rs, localByName, report)
		})
	}

	synced := make(map[uint]struct{})
	s.pullStatValues(ctx, api, it, localByName, synced, report)
	s.pushStatValues(ctx, api, it, remoteNames, synced, report)

	report.Finish()
	return report, nil
}

// reconcileStatDefinition upserts one schema stat into the local store.
// The map is updated in place so the pull pass sees freshly created stats.
func (s *Service) reconcileStatDefinition(tx *gorm.DB, it *imodels.Integration, rs models.RemoteStat, localByName map[string]*statmodels.GameStat, report *reconcile.Report) error {
	name := rs.DisplayName
	if name == "" {
		name = rs.Name
	}

	if local, ok := localByName[rs.Name]; ok {
		if local.Name == name && local.DefaultValue == rs.DefaultValue {
			return nil
		}
		local.Name = name
		local.DefaultValue = rs.DefaultValue
		if err := tx.Save(local).Error; err != nil {
			return fmt.Errorf("failed to update stat: %w", err)
		}
		report.StatsUpdated++
		return nil
	}

	stat := statmodels.GameStat{
		GameID:                it.GameID,
		InternalName:          rs.Name,
		Name:                  name,
		DefaultValue:          rs.DefaultValue,
		MinTimeBetweenUpdates: remoteStatDefaultRateLimit,
	}
	if err := tx.Create(&stat).Error; err != nil {
		return fmt.Errorf("failed to create stat: %w", err)
	}
	localByName[rs.Name] = &stat
	report.StatsCreated++
	return nil
}

// pullStatValues walks every Steam alias of the game and ingests that
// player's remote stat values. A failing fetch for one player is captured
// and the walk continues.
func (s *Service) pullStatValues(ctx context.Context, api *api, it *imodels.Integration, localByName map[string]*statmodels.GameStat, synced map[uint]struct{}, report *reconcile.Report) {
	err := game.StreamAliases(s.db, it.GameID, gamemodels.ServiceSteam, pullPageSize, func(alias gamemodels.PlayerAlias) (bool, error) {
		values, record, err := api.getUserStatsForGame(ctx, alias.Identifier)
		s.recordEvent(s.db, it.ID, record)
		if err != nil {
			report.Failf(err, "stats for %s", alias.Identifier)
			return true, nil
		}

		for _, rv := range values {
			stat, ok := localByName[rv.Name]
			if !ok {
				continue
			}
			rv := rv
			reconcile.InTx(s.db, report, fmt.Sprintf("stat %s for %s", rv.Name, alias.Identifier), func(tx *gorm.DB) error {
				return s.ingestStatValue(tx, alias, stat, rv.Value, synced, report)
			})
		}
		return true, nil
	})
	if err != nil {
		report.Failf(err, "steam aliases")
	}
}

// ingestStatValue writes one remote value onto the player's local stat row,
// creating it when absent. The remote value wins.
func (s *Service) ingestStatValue(tx *gorm.DB, alias gamemodels.PlayerAlias, stat *statmodels.GameStat, value float64, synced map[uint]struct{}, report *reconcile.Report) error {
	pgs := statmodels.PlayerGameStat{
		PlayerID: alias.PlayerID,
		StatID:   stat.ID,
	}
	err := tx.Where("player_id = ? AND stat_id = ?", alias.PlayerID, stat.ID).
		FirstOrCreate(&pgs).Error
	if err != nil {
		return fmt.Errorf("failed to upsert player stat: %w", err)
	}

	pgs.Value = value
	if err := tx.Save(&pgs).Error; err != nil {
		return fmt.Errorf("failed to save player stat: %w", err)
	}
	if err := upsertStatLink(tx, pgs.ID, alias.Identifier); err != nil {
		return err
	}
	synced[pgs.ID] = struct{}{}
	report.Pulled++
	return nil
}

// pushRow is one local stat value flattened for the push pass.
type pushRow struct {
	ID           uint
	Value        float64
	InternalName string
	SteamID      string
}

// pushStatValues sends local stat values the pull pass did not cover to
// Steam, one call per value, paced in batches. Only stats that exist in the
// remote schema are pushed.
func (s *Service) pushStatValues(ctx context.Context, api *api, it *imodels.Integration, remoteNames map[string]struct{}, synced map[uint]struct{}, report *reconcile.Report) {
	var cursor uint
	pushed := 0
	for {
		var rows []pushRow
		err := s.db.WithContext(ctx).Model(&statmodels.PlayerGameStat{}).
			Select("player_game_stats.id, player_game_stats.value, game_stats.internal_name, player_aliases.identifier AS steam_id").
			Joins("JOIN game_stats ON game_stats.id = player_game_stats.stat_id").
			Joins("JOIN player_aliases ON player_aliases.player_id = player_game_stats.player_id AND player_aliases.service = ?", gamemodels.ServiceSteam).
			Where("game_stats.game_id = ? AND player_game_stats.id > ?", it.GameID, cursor).
			Order("player_game_stats.id ASC").
			Limit(pushPageSize).
			Scan(&rows).Error
		if err != nil {
			report.Failf(err, "player stats")
			return
		}
		if len(rows) == 0 {
			return
		}

		for _, row := range rows {
			if _, ok := synced[row.ID]; ok {
				continue
			}
			if _, ok := remoteNames[row.InternalName]; !ok {
				continue
			}

			record, err := api.setUserStatsForGame(ctx, row.SteamID, row.InternalName, row.Value)
			s.recordEvent(s.db, it.ID, record)
			if err != nil {
				report.Failf(err, "stat %s for %s", row.InternalName, row.SteamID)
				s.logger.Warn("Failed to push stat",
					zap.String("stat", row.InternalName),
					zap.String("steam_id", row.SteamID),
					zap.Error(err))
				continue
			}
			if err := upsertStatLink(s.db, row.ID, row.SteamID); err != nil {
				report.Failf(err, "stat %s link", row.InternalName)
				continue
			}

			report.Pushed++
			pushed++
			if err := s.pace(ctx, pushed); err != nil {
				report.Failf(err, "push pacing")
				return
			}
		}
		cursor = rows[len(rows)-1].ID
	}
}
