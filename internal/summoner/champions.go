package summoner

import "strconv"

// championNames maps champion ids to display names for the ids most commonly
// seen in flair requests. Unknown ids fall back to a numeric label rather than
// failing aggregation; the id remains the stable key either way.
var championNames = map[int]string{
	1:   "Annie",
	2:   "Olaf",
	3:   "Galio",
	4:   "Twisted Fate",
	5:   "Xin Zhao",
	10:  "Kayle",
	11:  "Master Yi",
	17:  "Teemo",
	21:  "Miss Fortune",
	22:  "Ashe",
	45:  "Veigar",
	51:  "Caitlyn",
	64:  "Lee Sin",
	84:  "Akali",
	86:  "Garen",
	89:  "Leona",
	92:  "Riven",
	99:  "Lux",
	103: "Ahri",
	157: "Yasuo",
	222: "Jinx",
	238: "Zed",
	245: "Ekko",
	266: "Aatrox",
	350: "Yuumi",
	876: "Lillia",
}

// ChampionName resolves a champion id to a display name.
func ChampionName(championID int) string {
	if name, ok := championNames[championID]; ok {
		return name
	}
	return "Champion " + strconv.Itoa(championID)
}
