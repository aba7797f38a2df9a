package lobby

import (
	"encoding/hex"
	"fmt"
)

// SteamAppID is the game's Steam application id, used in the direct-join
// scheme prefix.
const SteamAppID = "301650"

const (
	steamProfileURL = "https://steamcommunity.com/profiles/%s"
	gogProfileURL   = "https://www.gog.com/u/%s"
	workshopItemURL = "https://steamcommunity.com/sharedfiles/filedetails/?id=%s"
	joinURLPrefix   = "steam://rungameid/" + SteamAppID + "//"
)

// SteamProfileURL returns the community profile URL for a Steam id.
func SteamProfileURL(id string) string {
	if id == "" {
		return ""
	}
	return fmt.Sprintf(steamProfileURL, id)
}

// GOGProfileURL returns the profile URL for a masked Galaxy id.
func GOGProfileURL(maskedID string) string {
	if maskedID == "" {
		return ""
	}
	return fmt.Sprintf(gogProfileURL, maskedID)
}

// WorkshopURL returns the storefront page for a mod id. The stock
// sentinel has no storefront page.
func WorkshopURL(modID string) string {
	if modID == "" || modID == StockModID {
		return ""
	}
	return fmt.Sprintf(workshopItemURL, modID)
}

// BuildJoinURL constructs the direct-join URL for a session. The argument
// string is the game's own comma-joined launch format, with the name and
// mod list length-prefixed and the still-encoded identity token as the
// NAT address; every byte of it is then hex-encoded onto the scheme
// prefix. Returns "" for locked or password-protected sessions and for
// sessions with no mod list, which the game client cannot join directly.
func BuildJoinURL(name, modList, natAddress string, locked, password bool) string {
	if locked || password || modList == "" {
		return ""
	}
	args := fmt.Sprintf("N,%d,%s,%d,%s,%s,0,", len(name), name, len(modList), modList, natAddress)
	return joinURLPrefix + hex.EncodeToString([]byte(args))
}
