package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ProfileType is the game mode a profile belongs to.
type ProfileType string

const (
	ProfileStandard ProfileType = "STANDARD"
	ProfileBeta     ProfileType = "BETA"
	ProfileDeadman  ProfileType = "DEADMAN"
	ProfileSeasonal ProfileType = "SEASONAL"
)

// ProfileIdentity identifies one game account + game mode pairing. The
// display name is volatile and excluded from equality and the storage key.
type ProfileIdentity struct {
	AccountHash int64       `json:"hash"`
	DisplayName string      `json:"name"`
	Type        ProfileType `json:"type"`
}

// Key returns the "HASH+TYPE" string used to index this profile's persisted
// history. It is stable for the same account across sessions.
func (p ProfileIdentity) Key() string {
	return strconv.FormatUint(uint64(p.AccountHash), 16) + "+" + string(p.Type)
}

// Same reports identity equality, ignoring the display name.
func (p ProfileIdentity) Same(other ProfileIdentity) bool {
	return p.AccountHash == other.AccountHash && p.Type == other.Type
}

func (p ProfileIdentity) String() string { return p.Key() }

// ParseProfileKey reconstructs a profile identity from its storage key. The
// display name is not recoverable from the key.
func ParseProfileKey(key string) (ProfileIdentity, error) {
	parts := strings.Split(key, "+")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ProfileIdentity{}, fmt.Errorf("malformed profile key %q", key)
	}
	hash, err := strconv.ParseUint(parts[0], 16, 64)
	if err != nil {
		return ProfileIdentity{}, fmt.Errorf("malformed profile hash in key %q: %w", key, err)
	}
	return ProfileIdentity{AccountHash: int64(hash), Type: ProfileType(parts[1])}, nil
}
