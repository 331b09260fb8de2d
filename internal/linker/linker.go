// Package linker walks a visitor through the provider identity flow: building
// the authorize redirect, exchanging the callback code, resolving the provider
// identity, and binding it all to a stored account with a session token.
package linker

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flairhub/flairhub/internal/account"
	"github.com/flairhub/flairhub/internal/platform/errors"
	"github.com/flairhub/flairhub/internal/storage"
	"github.com/flairhub/flairhub/internal/token"
)

// Linkage failure sentinels. Compare with errors.Is.
var (
	// ErrStateMismatch indicates the echoed state does not match the
	// caller's anonymous token, evidence of a forged or crossed flow.
	ErrStateMismatch = errors.New(errors.CodeStateMismatch, "provider state does not match anonymous token")
	// ErrProviderUnavailable indicates the provider could not be reached.
	ErrProviderUnavailable = errors.New(errors.CodeProviderUnavailable, "identity provider is unreachable")
	// ErrProviderRejected indicates the provider answered but refused the
	// exchange or identity request.
	ErrProviderRejected = errors.New(errors.CodeProviderRejected, "identity provider rejected the request")
)

// Config describes the provider endpoints and client credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	// AuthorizeURL is where the visitor's browser is redirected to consent.
	AuthorizeURL string
	// TokenURL is the code exchange endpoint.
	TokenURL string
	// IdentityURL returns the authenticated provider identity.
	IdentityURL string
	// CallbackURL is this site's registered redirect target.
	CallbackURL string
}

// Linker binds provider identities to accounts.
type Linker struct {
	config     Config
	codec      *token.Codec
	accounts   storage.AccountStore
	httpClient *http.Client
	now        func() time.Time
}

// New builds a linker. httpClient and now may be nil for defaults.
func New(config Config, codec *token.Codec, accounts storage.AccountStore, httpClient *http.Client, now func() time.Time) (*Linker, error) {
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("provider client credentials are required")
	}
	if config.AuthorizeURL == "" || config.TokenURL == "" || config.IdentityURL == "" || config.CallbackURL == "" {
		return nil, fmt.Errorf("provider endpoints are required")
	}
	if codec == nil {
		return nil, fmt.Errorf("token codec is required")
	}
	if accounts == nil {
		return nil, fmt.Errorf("account store is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if now == nil {
		now = time.Now
	}
	return &Linker{
		config:     config,
		codec:      codec,
		accounts:   accounts,
		httpClient: httpClient,
		now:        now,
	}, nil
}

// BeginProviderFlow builds the authorize redirect for a visitor holding the
// given anonymous token. The raw token doubles as the state parameter so the
// later completion can prove both legs belong to the same visitor.
func (l *Linker) BeginProviderFlow(anonymousToken string) (string, error) {
	if _, err := l.codec.Verify(anonymousToken, token.KindAnonymous); err != nil {
		return "", err
	}

	authorizeURL, err := url.Parse(l.config.AuthorizeURL)
	if err != nil {
		return "", fmt.Errorf("invalid authorize url: %w", err)
	}
	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("client_id", l.config.ClientID)
	query.Set("redirect_uri", l.config.CallbackURL)
	query.Set("scope", "identity")
	query.Set("duration", "temporary")
	query.Set("state", anonymousToken)
	authorizeURL.RawQuery = query.Encode()
	return authorizeURL.String(), nil
}

// CompleteProviderFlow finishes the linkage: it proves the echoed state
// belongs to the caller's anonymous token, exchanges the code, resolves the
// provider identity, upserts the account, and issues a session token for it.
// Concurrent completions for one provider identity converge on one account
// through the storage upsert.
func (l *Linker) CompleteProviderFlow(ctx context.Context, code, returnedState, anonymousToken string) (string, error) {
	if _, err := l.codec.Verify(anonymousToken, token.KindAnonymous); err != nil {
		return "", err
	}
	if subtle.ConstantTimeCompare([]byte(returnedState), []byte(anonymousToken)) != 1 {
		return "", ErrStateMismatch
	}
	if code == "" {
		return "", ErrProviderRejected
	}

	accessToken, err := l.exchangeCode(ctx, code)
	if err != nil {
		return "", err
	}
	identity, err := l.fetchIdentity(ctx, accessToken)
	if err != nil {
		return "", err
	}

	created, err := account.Create(account.CreateInput{
		RedditID: identity.redditID,
		UserName: identity.userName,
	}, l.now, nil)
	if err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}
	stored, err := l.accounts.UpsertAccount(ctx, created)
	if err != nil {
		return "", fmt.Errorf("store linked account: %w", err)
	}

	sessionToken, err := l.codec.Issue(token.KindSession, stored.ID)
	if err != nil {
		return "", fmt.Errorf("issue session token: %w", err)
	}
	return sessionToken, nil
}

// exchangeCode swaps the authorization code for a provider access token. The
// provider expects client credentials over basic auth and a form body.
func (l *Linker) exchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", l.config.CallbackURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(l.config.ClientID, l.config.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(errors.CodeProviderUnavailable, "identity provider is unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Wrap(errors.CodeProviderRejected, "identity provider rejected the request",
			fmt.Errorf("token exchange status %d", resp.StatusCode))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", errors.Wrap(errors.CodeProviderRejected, "identity provider rejected the request", err)
	}
	if payload.Error != "" || payload.AccessToken == "" {
		return "", errors.Wrap(errors.CodeProviderRejected, "identity provider rejected the request",
			fmt.Errorf("token exchange error %q", payload.Error))
	}
	return payload.AccessToken, nil
}

type providerIdentity struct {
	redditID int64
	userName string
}

// fetchIdentity resolves the authenticated provider identity. The provider
// returns its id base36-encoded.
func (l *Linker) fetchIdentity(ctx context.Context, accessToken string) (providerIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.config.IdentityURL, nil)
	if err != nil {
		return providerIdentity{}, fmt.Errorf("build identity request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return providerIdentity{}, errors.Wrap(errors.CodeProviderUnavailable, "identity provider is unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return providerIdentity{}, errors.Wrap(errors.CodeProviderRejected, "identity provider rejected the request",
			fmt.Errorf("identity fetch status %d", resp.StatusCode))
	}

	var payload struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return providerIdentity{}, errors.Wrap(errors.CodeProviderRejected, "identity provider rejected the request", err)
	}
	if payload.ID == "" || payload.Name == "" {
		return providerIdentity{}, errors.Wrap(errors.CodeProviderRejected, "identity provider rejected the request",
			fmt.Errorf("incomplete identity payload"))
	}

	redditID, err := decodeFullnameID(payload.ID)
	if err != nil {
		return providerIdentity{}, errors.Wrap(errors.CodeProviderRejected, "identity provider rejected the request", err)
	}
	return providerIdentity{redditID: redditID, userName: payload.Name}, nil
}
