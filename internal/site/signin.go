package site

import (
	"net/http"
	"net/url"

	"github.com/flairhub/flairhub/internal/token"
)

type tokenResponse struct {
	Token string `json:"token"`
}

// handleSigninAnonymous issues the entry credential of the sign-in state
// machine. No prior state is required.
func (s *Server) handleSigninAnonymous(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	anon, err := s.codec.Issue(token.KindAnonymous, "")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: anon})
}

// handleSigninReddit serves both legs of the provider redirect on one path.
// The start leg carries the visitor's anonymous token and redirects to the
// provider consent page; the callback leg carries the provider's code and the
// echoed state and redirects back to the frontend with a transition token.
func (s *Server) handleSigninReddit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	query := r.URL.Query()
	if query.Get("code") != "" || query.Get("state") != "" || query.Get("error") != "" {
		s.handleRedditCallback(w, r)
		return
	}

	anon := query.Get("token")
	if anon == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}
	redirect, err := s.linker.BeginProviderFlow(anon)
	if err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (s *Server) handleRedditCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if errParam := query.Get("error"); errParam != "" {
		http.Error(w, "provider denied the request", http.StatusBadRequest)
		return
	}
	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		http.Error(w, "missing code or state", http.StatusBadRequest)
		return
	}

	// The state must at least be a token this site signed as anonymous;
	// binding it to the caller's own anonymous token happens at upgrade.
	if _, err := s.codec.Verify(state, token.KindAnonymous); err != nil {
		writeError(w, err)
		return
	}

	// The transition token carries the echoed state forward as its subject
	// so the upgrade call can prove continuity.
	transition, err := s.codec.Issue(token.KindTransition, state)
	if err != nil {
		writeError(w, err)
		return
	}

	redirect, err := url.Parse(s.config.PagesOrigin)
	if err != nil || s.config.PagesOrigin == "" {
		writeJSON(w, http.StatusOK, map[string]string{"token": transition, "code": code})
		return
	}
	values := url.Values{}
	values.Set("token", transition)
	values.Set("code", code)
	redirect.RawQuery = values.Encode()
	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

// handleSigninUpgrade completes the linkage. The caller presents the
// transition token as the bearer credential, its original anonymous token in
// X-Anonymous-Token, and the provider code as a query parameter; it receives
// a session token.
func (s *Server) handleSigninUpgrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	transition := bearerToken(r)
	if transition == "" {
		writeError(w, token.ErrMalformed)
		return
	}
	returnedState, err := s.codec.Verify(transition, token.KindTransition)
	if err != nil {
		writeError(w, err)
		return
	}

	anon := r.Header.Get("X-Anonymous-Token")
	code := r.URL.Query().Get("code")
	session, err := s.linker.CompleteProviderFlow(r.Context(), code, returnedState, anon)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: session})
}
