// Package summoner provides the tracked game identity owned by an account and
// the aggregation of its raw mastery statistics.
package summoner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/flairhub/flairhub/internal/platform/id"
)

// Summoner is a tracked game identity. PUUID is the globally unique external
// key; a summoner belongs to exactly one account and is rebound, never
// deleted, when another account links the same PUUID.
type Summoner struct {
	ID          string
	AccountID   string
	PUUID       string
	GameName    string
	TagLine     string
	Platform    string
	LastSync    time.Time
	ChampScores []ChampScore
}

// ChampScore is the fixed-shape aggregate kept per champion.
type ChampScore struct {
	Champion int    `json:"champion"`
	Name     string `json:"name"`
	Points   int    `json:"points"`
	Level    int    `json:"level"`
}

// Mastery is one raw statistics item as returned by the games API.
type Mastery struct {
	ChampionID int
	Points     int
	Level      int
}

// Platforms recognized as partition tags for tracked summoners.
var knownPlatforms = map[string]bool{
	"BR1": true, "EUN1": true, "EUW1": true, "JP1": true, "KR": true,
	"LA1": true, "LA2": true, "NA1": true, "OC1": true, "TR1": true,
	"RU": true, "PH2": true, "SG2": true, "TH2": true, "TW2": true, "VN2": true,
}

// CreateInput describes a game identity being linked to an account.
type CreateInput struct {
	AccountID string
	PUUID     string
	GameName  string
	TagLine   string
	Platform  string
}

// Create builds a summoner record for a newly linked game identity.
func Create(input CreateInput, now func() time.Time, idGenerator func() (string, error)) (Summoner, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	input.AccountID = strings.TrimSpace(input.AccountID)
	input.PUUID = strings.TrimSpace(input.PUUID)
	input.GameName = strings.TrimSpace(input.GameName)
	input.TagLine = strings.TrimSpace(input.TagLine)
	input.Platform = strings.ToUpper(strings.TrimSpace(input.Platform))

	if input.AccountID == "" {
		return Summoner{}, fmt.Errorf("account id is required")
	}
	if input.PUUID == "" {
		return Summoner{}, fmt.Errorf("puuid is required")
	}
	if input.GameName == "" || input.TagLine == "" {
		return Summoner{}, fmt.Errorf("riot id requires both game name and tag line")
	}
	if !knownPlatforms[input.Platform] {
		return Summoner{}, fmt.Errorf("unknown platform %q", input.Platform)
	}

	summonerID, err := idGenerator()
	if err != nil {
		return Summoner{}, fmt.Errorf("generate summoner id: %w", err)
	}

	return Summoner{
		ID:        summonerID,
		AccountID: input.AccountID,
		PUUID:     input.PUUID,
		GameName:  input.GameName,
		TagLine:   input.TagLine,
		Platform:  input.Platform,
	}, nil
}

// RiotID renders the two-part display name.
func (s Summoner) RiotID() string {
	return s.GameName + "#" + s.TagLine
}

// AggregateScores groups raw mastery items by champion, summing points and
// keeping the peak level per champion. The result is ordered by points
// descending, champion id ascending, so persisted blobs are deterministic.
func AggregateScores(masteries []Mastery) ([]ChampScore, error) {
	byChampion := make(map[int]*ChampScore)
	for _, m := range masteries {
		if m.ChampionID <= 0 {
			return nil, fmt.Errorf("invalid champion id %d", m.ChampionID)
		}
		if m.Points < 0 || m.Level < 0 {
			return nil, fmt.Errorf("negative mastery values for champion %d", m.ChampionID)
		}
		score, ok := byChampion[m.ChampionID]
		if !ok {
			score = &ChampScore{Champion: m.ChampionID, Name: ChampionName(m.ChampionID)}
			byChampion[m.ChampionID] = score
		}
		score.Points += m.Points
		if m.Level > score.Level {
			score.Level = m.Level
		}
	}

	scores := make([]ChampScore, 0, len(byChampion))
	for _, score := range byChampion {
		scores = append(scores, *score)
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Points != scores[j].Points {
			return scores[i].Points > scores[j].Points
		}
		return scores[i].Champion < scores[j].Champion
	})
	return scores, nil
}
