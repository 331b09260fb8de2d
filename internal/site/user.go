package site

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/flairhub/flairhub/internal/platform/requestctx"
	"github.com/flairhub/flairhub/internal/storage"
	"github.com/flairhub/flairhub/internal/summoner"
)

type summonerView struct {
	ID          string                `json:"id"`
	RiotID      string                `json:"riot_id"`
	Platform    string                `json:"platform"`
	LastSync    *time.Time            `json:"last_sync,omitempty"`
	ChampScores []summoner.ChampScore `json:"champ_scores,omitempty"`
}

type accountView struct {
	ID              string         `json:"id"`
	UserName        string         `json:"user_name"`
	ProfileIsPublic bool           `json:"profile_is_public"`
	ProfileBGSkinID *int64         `json:"profile_bgskin_id,omitempty"`
	Summoners       []summonerView `json:"summoners"`
}

func toSummonerView(sm summoner.Summoner) summonerView {
	view := summonerView{
		ID:          sm.ID,
		RiotID:      sm.RiotID(),
		Platform:    sm.Platform,
		ChampScores: sm.ChampScores,
	}
	if !sm.LastSync.IsZero() {
		lastSync := sm.LastSync
		view.LastSync = &lastSync
	}
	return view
}

// handleUserMe returns the authenticated account and its tracked summoners.
func (s *Server) handleUserMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	accountID := requestctx.AccountIDFromContext(r.Context())
	acc, err := s.store.GetAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	summoners, err := s.store.ListAccountSummoners(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]summonerView, 0, len(summoners))
	for _, sm := range summoners {
		views = append(views, toSummonerView(sm))
	}
	writeJSON(w, http.StatusOK, accountView{
		ID:              acc.ID,
		UserName:        acc.UserName,
		ProfileIsPublic: acc.ProfileIsPublic,
		ProfileBGSkinID: acc.ProfileBGSkinID,
		Summoners:       views,
	})
}

type linkSummonerRequest struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"game_name"`
	TagLine  string `json:"tag_line"`
	Platform string `json:"platform"`
}

// handleUserSummoners links a summoner to the authenticated account. Linking
// a puuid already tracked by another account rebinds it; its synced
// statistics survive the move. A first refresh is enqueued on linkage.
func (s *Server) handleUserSummoners(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	accountID := requestctx.AccountIDFromContext(r.Context())

	var req linkSummonerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	created, err := summoner.Create(summoner.CreateInput{
		AccountID: accountID,
		PUUID:     req.PUUID,
		GameName:  req.GameName,
		TagLine:   strings.TrimPrefix(req.TagLine, "#"),
		Platform:  req.Platform,
	}, s.clock, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	stored, err := s.store.UpsertSummoner(r.Context(), created)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.queue.Enqueue(r.Context(), stored.PUUID); err != nil {
		log.Printf("enqueue initial refresh for %s: %v", stored.PUUID, err)
	}
	writeJSON(w, http.StatusCreated, toSummonerView(stored))
}

// handleSummonerRoutes dispatches /summoner/{id}/{action}.
func (s *Server) handleSummonerRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/summoner/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	summonerID := parts[0]
	action := parts[1]

	switch action {
	case "update":
		s.handleSummonerUpdate(w, r, summonerID)
	default:
		http.NotFound(w, r)
	}
}

// handleSummonerUpdate enqueues a refresh job for an owned summoner. A
// summoner owned by another account reads as missing.
func (s *Server) handleSummonerUpdate(w http.ResponseWriter, r *http.Request, summonerID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	accountID := requestctx.AccountIDFromContext(r.Context())
	sm, err := s.store.GetSummoner(r.Context(), summonerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if sm.AccountID != accountID {
		writeError(w, storage.ErrNotFound)
		return
	}
	if err := s.queue.Enqueue(r.Context(), sm.PUUID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
