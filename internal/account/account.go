// Package account provides the local identity record linked to a provider user.
package account

import (
	"fmt"
	"strings"
	"time"

	"github.com/flairhub/flairhub/internal/platform/id"
)

// Account represents a local identity created on first provider linkage.
//
// RedditID is the provider's stable numeric user id and is immutable once set.
// UserName uniqueness is case-insensitive (enforced by storage). Accounts are
// never deleted in-core.
type Account struct {
	ID              string
	RedditID        int64
	UserName        string
	ProfileIsPublic bool
	ProfileBGSkinID *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateInput describes the provider identity needed to create an account.
type CreateInput struct {
	RedditID int64
	UserName string
}

// Create builds a durable account record from a resolved provider identity.
func Create(input CreateInput, now func() time.Time, idGenerator func() (string, error)) (Account, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	input.UserName = strings.TrimSpace(input.UserName)
	if input.RedditID <= 0 {
		return Account{}, fmt.Errorf("provider user id is required")
	}
	if input.UserName == "" {
		return Account{}, fmt.Errorf("provider user name is required")
	}

	accountID, err := idGenerator()
	if err != nil {
		return Account{}, fmt.Errorf("generate account id: %w", err)
	}

	createdAt := now().UTC()
	return Account{
		ID:        accountID,
		RedditID:  input.RedditID,
		UserName:  input.UserName,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}, nil
}
