package models

import "time"

// Special channel keys
const (
	ChannelStaffLog    = "STAFF_LOG"
	ChannelStaffAlerts = "STAFF_ALERTS"
)

// Built-in defaults used when a guild has no explicit configuration
const (
	DefaultPingWarnLimit   = 6
	DefaultPingBanLimit    = 15
	DefaultInviteMinutes   = 30
	DefaultInviteBanLimit  = 5
	DefaultAttachSeconds   = 15
	DefaultAttachWarnLimit = 3
	DefaultAttachBanLimit  = 5
)

// InviteCooldown is the invite-spam window and ban threshold
type InviteCooldown struct {
	Minutes  int `json:"minutes" yaml:"minutes"`
	BanLimit int `json:"banLimit" yaml:"banLimit"`
}

// AttachCooldown is the attachment-spam window and thresholds
type AttachCooldown struct {
	Seconds   int `json:"seconds" yaml:"seconds"`
	WarnLimit int `json:"warnLimit" yaml:"warnLimit"`
	BanLimit  int `json:"banLimit" yaml:"banLimit"`
}

// Cooldowns groups the detector windows. A nil entry means "use defaults".
type Cooldowns struct {
	Invites *InviteCooldown `json:"invites,omitempty" yaml:"invites,omitempty"`
	Attach  *AttachCooldown `json:"attach,omitempty" yaml:"attach,omitempty"`
}

// AntiSpamSettings mirrors the antiSpam configuration keys.
// Ping limits: nil means default, a value <= 0 disables the tier.
type AntiSpamSettings struct {
	PingSoftLimit  *int      `json:"pingSoftLimit,omitempty" yaml:"pingSoftLimit,omitempty"`
	PingHardLimit  *int      `json:"pingHardLimit,omitempty" yaml:"pingHardLimit,omitempty"`
	AllowedInvites []string  `json:"allowedInvites,omitempty" yaml:"allowedInvites,omitempty"`
	Cooldowns      Cooldowns `json:"cooldowns" yaml:"cooldowns"`
}

// GuildSettings is everything the anti-spam core reads for one guild
type GuildSettings struct {
	GuildID         string            `json:"guildId" yaml:"guildId"`
	AntiSpam        AntiSpamSettings  `json:"antiSpam" yaml:"antiSpam"`
	SpecialChannels map[string]string `json:"specialChannels,omitempty" yaml:"specialChannels,omitempty"`
	UpdatedAt       int64             `json:"updatedAt,omitempty" yaml:"-"`
}

// DefaultGuildSettings returns settings with nothing configured
func DefaultGuildSettings(guildID string) *GuildSettings {
	return &GuildSettings{GuildID: guildID}
}

func limitOrDefault(v *int, def int) int {
	if v == nil {
		return def
	}
	if *v <= 0 {
		return 0
	}
	return *v
}

// PingWarnLimit returns the mention warn threshold, 0 when disabled
func (s *GuildSettings) PingWarnLimit() int {
	return limitOrDefault(s.AntiSpam.PingSoftLimit, DefaultPingWarnLimit)
}

// PingBanLimit returns the mention ban threshold, 0 when disabled
func (s *GuildSettings) PingBanLimit() int {
	return limitOrDefault(s.AntiSpam.PingHardLimit, DefaultPingBanLimit)
}

// InviteCooldown returns the effective invite window settings
func (s *GuildSettings) InviteCooldown() InviteCooldown {
	c := s.AntiSpam.Cooldowns.Invites
	if c == nil {
		return InviteCooldown{Minutes: DefaultInviteMinutes, BanLimit: DefaultInviteBanLimit}
	}
	out := *c
	if out.Minutes <= 0 {
		out.Minutes = DefaultInviteMinutes
	}
	return out
}

// InviteWindow returns the invite cooldown window
func (s *GuildSettings) InviteWindow() time.Duration {
	return time.Duration(s.InviteCooldown().Minutes) * time.Minute
}

// AttachCooldown returns the effective attachment window settings
func (s *GuildSettings) AttachCooldown() AttachCooldown {
	c := s.AntiSpam.Cooldowns.Attach
	if c == nil {
		return AttachCooldown{
			Seconds:   DefaultAttachSeconds,
			WarnLimit: DefaultAttachWarnLimit,
			BanLimit:  DefaultAttachBanLimit,
		}
	}
	out := *c
	if out.Seconds <= 0 {
		out.Seconds = DefaultAttachSeconds
	}
	return out
}

// AttachWindow returns the attachment cooldown window
func (s *GuildSettings) AttachWindow() time.Duration {
	return time.Duration(s.AttachCooldown().Seconds) * time.Second
}

// InviteWhitelisted reports whether invites to communityID are allowed.
// The guild itself is always allowed.
func (s *GuildSettings) InviteWhitelisted(communityID string) bool {
	if communityID == s.GuildID {
		return true
	}
	for _, id := range s.AntiSpam.AllowedInvites {
		if id == communityID {
			return true
		}
	}
	return false
}

// Channel returns the id of a special channel, or ""
func (s *GuildSettings) Channel(key string) string {
	if s.SpecialChannels == nil {
		return ""
	}
	return s.SpecialChannels[key]
}

// StaffLog returns the audit log channel id, or ""
func (s *GuildSettings) StaffLog() string {
	return s.Channel(ChannelStaffLog)
}

// StaffAlerts returns the alert channel, falling back to the audit log channel
func (s *GuildSettings) StaffAlerts() string {
	if id := s.Channel(ChannelStaffAlerts); id != "" {
		return id
	}
	return s.StaffLog()
}

// Clone returns a deep copy safe to mutate
func (s *GuildSettings) Clone() *GuildSettings {
	out := *s
	if s.AntiSpam.PingSoftLimit != nil {
		v := *s.AntiSpam.PingSoftLimit
		out.AntiSpam.PingSoftLimit = &v
	}
	if s.AntiSpam.PingHardLimit != nil {
		v := *s.AntiSpam.PingHardLimit
		out.AntiSpam.PingHardLimit = &v
	}
	out.AntiSpam.AllowedInvites = append([]string(nil), s.AntiSpam.AllowedInvites...)
	if s.AntiSpam.Cooldowns.Invites != nil {
		v := *s.AntiSpam.Cooldowns.Invites
		out.AntiSpam.Cooldowns.Invites = &v
	}
	if s.AntiSpam.Cooldowns.Attach != nil {
		v := *s.AntiSpam.Cooldowns.Attach
		out.AntiSpam.Cooldowns.Attach = &v
	}
	if s.SpecialChannels != nil {
		out.SpecialChannels = make(map[string]string, len(s.SpecialChannels))
		for k, v := range s.SpecialChannels {
			out.SpecialChannels[k] = v
		}
	}
	return &out
}
