package internal

import (
	"fmt"
	"strings"
	"time"
)

// regionClusters maps a platform region to the coarser routing cluster
// used by the account and match APIs.
var regionClusters = map[string]string{
	"na1":  "americas",
	"br1":  "americas",
	"la1":  "americas",
	"la2":  "americas",
	"euw1": "europe",
	"eun1": "europe",
	"tr1":  "europe",
	"ru1":  "europe",
	"kr":   "asia",
	"jp1":  "asia",
	"oc1":  "sea",
	"ph2":  "sea",
	"sg2":  "sea",
	"th2":  "sea",
	"tw2":  "sea",
	"vn2":  "sea",
}

const defaultCluster = "americas"

// RegionCluster resolves the routing cluster for a platform region.
// Unknown regions fall back to americas.
func RegionCluster(region string) string {
	if cluster, ok := regionClusters[strings.ToLower(region)]; ok {
		return cluster
	}
	return defaultCluster
}

func IsKnownRegion(region string) bool {
	_, ok := regionClusters[strings.ToLower(region)]
	return ok
}

var queueNames = map[int]string{
	400:  "Normal Draft",
	420:  "Ranked Solo/Duo",
	430:  "Normal Blind",
	440:  "Ranked Flex",
	450:  "ARAM",
	490:  "Quickplay",
	700:  "Clash",
	830:  "Co-op vs AI Intro",
	840:  "Co-op vs AI Beginner",
	850:  "Co-op vs AI Intermediate",
	900:  "URF",
	1020: "One for All",
	1300: "Nexus Blitz",
	1400: "Ultimate Spellbook",
	1700: "Arena",
	1900: "Pick URF",
}

func QueueName(queueID int) string {
	if name, ok := queueNames[queueID]; ok {
		return name
	}
	return fmt.Sprintf("Queue %d", queueID)
}

var mapNames = map[int]string{
	11: "Summoner's Rift",
	12: "Howling Abyss",
	21: "Nexus Blitz",
	22: "Convergence",
	30: "Rings of Wrath",
}

func MapName(mapID int) string {
	if name, ok := mapNames[mapID]; ok {
		return name
	}
	return fmt.Sprintf("Map %d", mapID)
}

var gameModeNames = map[string]string{
	"CLASSIC":      "Classic",
	"ARAM":         "ARAM",
	"URF":          "URF",
	"ARURF":        "AR URF",
	"CHERRY":       "Arena",
	"NEXUSBLITZ":   "Nexus Blitz",
	"ONEFORALL":    "One for All",
	"ULTBOOK":      "Ultimate Spellbook",
	"TUTORIAL":     "Tutorial",
	"PRACTICETOOL": "Practice Tool",
}

func GameModeName(mode string) string {
	if name, ok := gameModeNames[mode]; ok {
		return name
	}
	return mode
}

var gameTypeNames = map[string]string{
	"MATCHED_GAME":  "Matched",
	"CUSTOM_GAME":   "Custom",
	"TUTORIAL_GAME": "Tutorial",
}

func GameTypeName(gameType string) string {
	if name, ok := gameTypeNames[gameType]; ok {
		return name
	}
	return gameType
}

// championNames is the fallback table for spectator payloads that carry
// only championId. Match-v5 payloads carry championName, so this list
// only needs the commonly spectated roster, not every release.
var championNames = map[int]string{
	1:   "Annie",
	2:   "Olaf",
	3:   "Galio",
	4:   "Twisted Fate",
	5:   "Xin Zhao",
	6:   "Urgot",
	7:   "LeBlanc",
	8:   "Vladimir",
	9:   "Fiddlesticks",
	10:  "Kayle",
	11:  "Master Yi",
	12:  "Alistar",
	13:  "Ryze",
	14:  "Sion",
	15:  "Sivir",
	16:  "Soraka",
	17:  "Teemo",
	18:  "Tristana",
	19:  "Warwick",
	20:  "Nunu & Willump",
	21:  "Miss Fortune",
	22:  "Ashe",
	23:  "Tryndamere",
	24:  "Jax",
	25:  "Morgana",
	26:  "Zilean",
	27:  "Singed",
	28:  "Evelynn",
	29:  "Twitch",
	30:  "Karthus",
	31:  "Cho'Gath",
	32:  "Amumu",
	33:  "Rammus",
	34:  "Anivia",
	35:  "Shaco",
	36:  "Dr. Mundo",
	37:  "Sona",
	38:  "Kassadin",
	39:  "Irelia",
	40:  "Janna",
	41:  "Gangplank",
	42:  "Corki",
	43:  "Karma",
	44:  "Taric",
	45:  "Veigar",
	48:  "Trundle",
	50:  "Swain",
	51:  "Caitlyn",
	53:  "Blitzcrank",
	54:  "Malphite",
	55:  "Katarina",
	56:  "Nocturne",
	57:  "Maokai",
	58:  "Renekton",
	59:  "Jarvan IV",
	60:  "Elise",
	61:  "Orianna",
	62:  "Wukong",
	63:  "Brand",
	64:  "Lee Sin",
	67:  "Vayne",
	68:  "Rumble",
	69:  "Cassiopeia",
	72:  "Skarner",
	74:  "Heimerdinger",
	75:  "Nasus",
	76:  "Nidalee",
	77:  "Udyr",
	78:  "Poppy",
	79:  "Gragas",
	80:  "Pantheon",
	81:  "Ezreal",
	82:  "Mordekaiser",
	83:  "Yorick",
	84:  "Akali",
	85:  "Kennen",
	86:  "Garen",
	89:  "Leona",
	90:  "Malzahar",
	91:  "Talon",
	92:  "Riven",
	96:  "Kog'Maw",
	98:  "Shen",
	99:  "Lux",
	101: "Xerath",
	102: "Shyvana",
	103: "Ahri",
	104: "Graves",
	105: "Fizz",
	106: "Volibear",
	107: "Rengar",
	110: "Varus",
	111: "Nautilus",
	112: "Viktor",
	113: "Sejuani",
	114: "Fiora",
	115: "Ziggs",
	117: "Lulu",
	119: "Draven",
	120: "Hecarim",
	121: "Kha'Zix",
	122: "Darius",
	126: "Jayce",
	127: "Lissandra",
	131: "Diana",
	133: "Quinn",
	134: "Syndra",
	136: "Aurelion Sol",
	141: "Kayn",
	142: "Zoe",
	143: "Zyra",
	145: "Kai'Sa",
	147: "Seraphine",
	150: "Gnar",
	154: "Zac",
	157: "Yasuo",
	161: "Vel'Koz",
	163: "Taliyah",
	164: "Camille",
	166: "Akshan",
	200: "Bel'Veth",
	201: "Braum",
	202: "Jhin",
	203: "Kindred",
	221: "Zeri",
	222: "Jinx",
	223: "Tahm Kench",
	233: "Briar",
	234: "Viego",
	235: "Senna",
	236: "Lucian",
	238: "Zed",
	240: "Kled",
	245: "Ekko",
	246: "Qiyana",
	254: "Vi",
	266: "Aatrox",
	267: "Nami",
	268: "Azir",
	350: "Yuumi",
	360: "Samira",
	412: "Thresh",
	420: "Illaoi",
	421: "Rek'Sai",
	427: "Ivern",
	429: "Kalista",
	432: "Bard",
	497: "Rakan",
	498: "Xayah",
	516: "Ornn",
	517: "Sylas",
	518: "Neeko",
	523: "Aphelios",
	526: "Rell",
	555: "Pyke",
	711: "Vex",
	777: "Yone",
	875: "Sett",
	876: "Lillia",
	887: "Gwen",
	888: "Renata Glasc",
	895: "Nilah",
	897: "K'Sante",
	901: "Smolder",
	902: "Milio",
	910: "Hwei",
	950: "Naafiri",
}

// ChampionName resolves a champion id, preferring the payload-provided
// name when present.
func ChampionName(championID int, payloadName string) string {
	if payloadName != "" && payloadName != "Unknown" {
		return payloadName
	}
	if name, ok := championNames[championID]; ok {
		return name
	}
	return fmt.Sprintf("Champion_%d", championID)
}

// FormatGameDuration renders seconds as "1h 23m 45s" style strings.
func FormatGameDuration(seconds int64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds < 3600 {
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%dh %dm %ds", seconds/3600, (seconds%3600)/60, seconds%60)
}

// FormatEpochMs renders epoch milliseconds as a local timestamp.
func FormatEpochMs(epochMs int64) string {
	if epochMs <= 0 {
		return "Unknown"
	}
	return time.UnixMilli(epochMs).Format("2006-01-02 15:04:05")
}
