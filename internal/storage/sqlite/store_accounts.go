package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/flairhub/flairhub/internal/account"
	"github.com/flairhub/flairhub/internal/storage"
)

// UpsertAccount inserts the account or refreshes the existing record keyed by
// reddit id. The insert-or-update is a single atomic statement so concurrent
// linkage completions for one reddit id converge on one row; the row that won
// the insert keeps its local id.
func (s *Store) UpsertAccount(ctx context.Context, a account.Account) (account.Account, error) {
	if err := s.ensureDB(); err != nil {
		return account.Account{}, err
	}
	if a.RedditID <= 0 {
		return account.Account{}, fmt.Errorf("reddit id is required")
	}
	if strings.TrimSpace(a.UserName) == "" {
		return account.Account{}, fmt.Errorf("reddit user name is required")
	}

	var skinID sql.NullInt64
	if a.ProfileBGSkinID != nil {
		skinID = sql.NullInt64{Int64: *a.ProfileBGSkinID, Valid: true}
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO account (id, reddit_id, reddit_user_name, profile_is_public, profile_bgskin_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(reddit_id) DO UPDATE SET
	reddit_user_name = excluded.reddit_user_name,
	updated_at = excluded.updated_at
`,
		a.ID, a.RedditID, a.UserName, boolToInt(a.ProfileIsPublic), skinID,
		toMillis(a.CreatedAt), toMillis(a.UpdatedAt),
	)
	if err != nil {
		// The upsert resolves reddit id collisions in place, so a unique
		// violation here means a different reddit id already holds the
		// user name.
		if strings.Contains(err.Error(), "reddit_user_name") {
			return account.Account{}, fmt.Errorf("upsert account: %w", storage.ErrAccountConflict)
		}
		return account.Account{}, fmt.Errorf("upsert account: %w", err)
	}
	return s.FindAccountByRedditID(ctx, a.RedditID)
}

// FindAccountByRedditID returns the account linked to the given reddit id.
func (s *Store) FindAccountByRedditID(ctx context.Context, redditID int64) (account.Account, error) {
	if err := s.ensureDB(); err != nil {
		return account.Account{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, selectAccount+"WHERE reddit_id = ?", redditID)
	return scanAccount(row.Scan)
}

// GetAccount returns one account by local id.
func (s *Store) GetAccount(ctx context.Context, accountID string) (account.Account, error) {
	if err := s.ensureDB(); err != nil {
		return account.Account{}, err
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return account.Account{}, fmt.Errorf("account id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, selectAccount+"WHERE id = ?", accountID)
	return scanAccount(row.Scan)
}

const selectAccount = `
SELECT id, reddit_id, reddit_user_name, profile_is_public, profile_bgskin_id, created_at, updated_at
FROM account
`

func scanAccount(scan func(dest ...any) error) (account.Account, error) {
	var a account.Account
	var isPublic int
	var skinID sql.NullInt64
	var createdAt, updatedAt int64
	err := scan(&a.ID, &a.RedditID, &a.UserName, &isPublic, &skinID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.Account{}, storage.ErrNotFound
		}
		return account.Account{}, fmt.Errorf("scan account: %w", err)
	}
	a.ProfileIsPublic = isPublic != 0
	if skinID.Valid {
		a.ProfileBGSkinID = &skinID.Int64
	}
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return a, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
