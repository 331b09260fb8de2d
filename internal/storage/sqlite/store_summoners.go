package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flairhub/flairhub/internal/storage"
	"github.com/flairhub/flairhub/internal/summoner"
)

// UpsertSummoner inserts the summoner or rebinds the existing record keyed by
// puuid. Rebinding updates ownership and riot id fields while keeping the
// stored statistics; a puuid is never tracked twice.
func (s *Store) UpsertSummoner(ctx context.Context, sm summoner.Summoner) (summoner.Summoner, error) {
	if err := s.ensureDB(); err != nil {
		return summoner.Summoner{}, err
	}
	if strings.TrimSpace(sm.PUUID) == "" {
		return summoner.Summoner{}, fmt.Errorf("puuid is required")
	}
	if strings.TrimSpace(sm.AccountID) == "" {
		return summoner.Summoner{}, fmt.Errorf("account id is required")
	}

	now := toMillis(time.Now())
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO summoner (id, account_id, puuid, game_name, tag_line, platform, last_sync, champ_scores, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, NULL, NULL, ?, ?)
ON CONFLICT(puuid) DO UPDATE SET
	account_id = excluded.account_id,
	game_name = excluded.game_name,
	tag_line = excluded.tag_line,
	platform = excluded.platform,
	updated_at = excluded.updated_at
`,
		sm.ID, sm.AccountID, sm.PUUID, sm.GameName, sm.TagLine, sm.Platform, now, now,
	)
	if err != nil {
		return summoner.Summoner{}, fmt.Errorf("upsert summoner: %w", err)
	}
	return s.FindSummonerByPUUID(ctx, sm.PUUID)
}

// FindSummonerByPUUID returns the summoner tracked under the given puuid.
func (s *Store) FindSummonerByPUUID(ctx context.Context, puuid string) (summoner.Summoner, error) {
	if err := s.ensureDB(); err != nil {
		return summoner.Summoner{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, selectSummoner+"WHERE puuid = ?", puuid)
	return scanSummoner(row.Scan)
}

// GetSummoner returns one summoner by local id.
func (s *Store) GetSummoner(ctx context.Context, summonerID string) (summoner.Summoner, error) {
	if err := s.ensureDB(); err != nil {
		return summoner.Summoner{}, err
	}
	summonerID = strings.TrimSpace(summonerID)
	if summonerID == "" {
		return summoner.Summoner{}, fmt.Errorf("summoner id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, selectSummoner+"WHERE id = ?", summonerID)
	return scanSummoner(row.Scan)
}

// ListAccountSummoners returns all summoners owned by an account.
func (s *Store) ListAccountSummoners(ctx context.Context, accountID string) ([]summoner.Summoner, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, selectSummoner+"WHERE account_id = ? ORDER BY created_at ASC, id ASC", accountID)
	if err != nil {
		return nil, fmt.Errorf("list account summoners: %w", err)
	}
	defer rows.Close()
	return collectSummoners(rows)
}

// UpsertSummonerStats writes the aggregated statistics blob and last-sync
// timestamp keyed by puuid. The summoner row must already exist; statistics
// never create tracking on their own.
func (s *Store) UpsertSummonerStats(ctx context.Context, puuid string, scores []summoner.ChampScore, syncedAt time.Time) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	puuid = strings.TrimSpace(puuid)
	if puuid == "" {
		return fmt.Errorf("puuid is required")
	}
	if syncedAt.IsZero() {
		syncedAt = time.Now().UTC()
	}
	if scores == nil {
		scores = []summoner.ChampScore{}
	}
	blob, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("encode champ scores: %w", err)
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE summoner
SET champ_scores = ?, last_sync = ?, updated_at = ?
WHERE puuid = ?
`,
		string(blob), toMillis(syncedAt), toMillis(syncedAt), puuid,
	)
	if err != nil {
		return fmt.Errorf("upsert summoner stats: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert summoner stats rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListStaleSummoners returns up to limit summoners, never-synced first, then
// oldest last-sync first.
func (s *Store) ListStaleSummoners(ctx context.Context, limit int) ([]summoner.Summoner, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		selectSummoner+"ORDER BY last_sync IS NOT NULL, last_sync ASC, id ASC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list stale summoners: %w", err)
	}
	defer rows.Close()
	return collectSummoners(rows)
}

const selectSummoner = `
SELECT id, account_id, puuid, game_name, tag_line, platform, last_sync, champ_scores
FROM summoner
`

func scanSummoner(scan func(dest ...any) error) (summoner.Summoner, error) {
	var sm summoner.Summoner
	var lastSync sql.NullInt64
	var blob sql.NullString
	err := scan(&sm.ID, &sm.AccountID, &sm.PUUID, &sm.GameName, &sm.TagLine, &sm.Platform, &lastSync, &blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return summoner.Summoner{}, storage.ErrNotFound
		}
		return summoner.Summoner{}, fmt.Errorf("scan summoner: %w", err)
	}
	if lastSync.Valid {
		sm.LastSync = fromMillis(lastSync.Int64)
	}
	if blob.Valid && blob.String != "" {
		if err := json.Unmarshal([]byte(blob.String), &sm.ChampScores); err != nil {
			return summoner.Summoner{}, fmt.Errorf("decode champ scores: %w", err)
		}
	}
	return sm, nil
}

func collectSummoners(rows *sql.Rows) ([]summoner.Summoner, error) {
	summoners := []summoner.Summoner{}
	for rows.Next() {
		sm, err := scanSummoner(rows.Scan)
		if err != nil {
			return nil, err
		}
		summoners = append(summoners, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summoners: %w", err)
	}
	return summoners, nil
}
