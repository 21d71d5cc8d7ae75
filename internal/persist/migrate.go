package persist

import (
	"regexp"
	"strings"
)

// Version 1 serialized each item as a canonical id plus a separately tracked
// noted id, and used abbreviated field labels for quantity and value. The
// noted id, when set, is the id that should have been recorded in the first
// place, so the pair collapses to one field. The -1 sentinel means "not
// noted" and keeps the canonical id.
var v1ItemIDPair = regexp.MustCompile(`"id":(\d+),"notedID":(-?\d+)`)

// UpgradeV1toV2 rewrites a serialized version 1 history payload into the
// version 2 format. Running it on already-migrated text is a no-op.
func UpgradeV1toV2(payload string) string {
	upgraded := v1ItemIDPair.ReplaceAllStringFunc(payload, func(match string) string {
		groups := v1ItemIDPair.FindStringSubmatch(match)
		id := groups[1]
		if groups[2] != "-1" {
			id = groups[2]
		}
		return `"id":` + id
	})
	upgraded = strings.ReplaceAll(upgraded, `"num":`, `"qty":`)
	upgraded = strings.ReplaceAll(upgraded, `"ge":`, `"val":`)
	return upgraded
}
