package models

// CommonSaveState is the small always-resident record tracking which profile
// is active and which profiles are known. One instance per installation,
// independent of any single history.
type CommonSaveState struct {
	Version       int               `json:"saveVersion"`
	ActiveProfile *ProfileIdentity  `json:"activeProfile"`
	KnownProfiles []ProfileIdentity `json:"savedProfiles"`
}

// NewCommonSaveState creates first-run common state with no active profile.
func NewCommonSaveState(version int) *CommonSaveState {
	return &CommonSaveState{Version: version, KnownProfiles: []ProfileIdentity{}}
}

// SetActiveProfile makes the passed profile active, registering it among the
// known profiles. The active profile is always a member of KnownProfiles.
func (c *CommonSaveState) SetActiveProfile(profile *ProfileIdentity) {
	if profile != nil {
		found := false
		for i, known := range c.KnownProfiles {
			if known.Same(*profile) {
				c.KnownProfiles[i] = *profile // refresh volatile display name
				found = true
				break
			}
		}
		if !found {
			c.KnownProfiles = append(c.KnownProfiles, *profile)
		}
	}
	c.ActiveProfile = profile
}

// RemoveKnownProfile forgets a profile. The active profile is cleared if it
// was the one removed.
func (c *CommonSaveState) RemoveKnownProfile(profile ProfileIdentity) {
	kept := c.KnownProfiles[:0]
	for _, known := range c.KnownProfiles {
		if !known.Same(profile) {
			kept = append(kept, known)
		}
	}
	c.KnownProfiles = kept
	if c.ActiveProfile != nil && c.ActiveProfile.Same(profile) {
		c.ActiveProfile = nil
	}
}
