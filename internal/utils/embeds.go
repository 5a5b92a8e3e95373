package utils

import (
	"fmt"
	"time"

	"discord-antispam-bot/internal/antispam/invite"

	"github.com/bwmarrin/discordgo"
)

// Author identifies the subject an embed talks about
type Author struct {
	ID        string
	Name      string
	AvatarURL string
}

func (a Author) Mention() string {
	return "<@" + a.ID + ">"
}

func BanReason(detail string) string {
	return BanTag + " " + detail
}

func MassPingBlockedEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Mass Ping Blocked",
		Description: "A mass-ping message was blocked in the current channel.\n" +
			"Please reduce the number of pings in your message and try again.",
		Color: ColorWarning,
	}
}

func MassPingAlertEmbed(a Author, mentions int, channelID string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{Name: "Mass Ping Alert", IconURL: a.AvatarURL},
		Description: fmt.Sprintf("User %s has pinged %d users in a single message in channel <#%s>.",
			a.Name, mentions, channelID),
		Color:     ColorWarning,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// InviteBlockedEmbed is the one-time notice sent on a subject's first invite offense
func InviteBlockedEmbed(a Author) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Discord Invite Blocked",
		Description: fmt.Sprintf("Hey %s! It looks like you posted a Discord invite.\n\n"+
			"This server has a strict no-invites policy in order to prevent spam and advertisements. "+
			"If you would like to post an invite, you may contact the admins to request an invite "+
			"be whitelisted.\n\nWe apologize for the inconvenience.", a.Mention()),
		Color: ColorWarning,
	}
}

func InvalidInviteEmbed(a Author, code, channelID string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name:    fmt.Sprintf("Invite from %s intercepted!", a.Name),
			IconURL: a.AvatarURL,
		},
		Description: fmt.Sprintf("An invalid invite with key `%s` by user %s (ID `%s`) was caught and filtered in <#%s>.",
			code, a.Name, a.ID, channelID),
		Color:     ColorInfo,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// Discord rejects embed fields with an empty value
func orUnknown(v string) string {
	if v == "" {
		return "Unknown"
	}
	return v
}

// InviteReportEmbed is the staff log report for an unauthorized invite.
// Group DM invites carry no guild, those fields read "Unknown".
func InviteReportEmbed(a Author, res *invite.Resolution, strike, banLimit int, resets time.Time) *discordgo.MessageEmbed {
	created := ""
	if !res.GuildCreatedAt.IsZero() {
		created = res.GuildCreatedAt.UTC().Format(DateTimeFormat)
	}
	channel := "Unknown"
	if res.ChannelName != "" {
		channel = res.ChannelLabel()
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Invited Guild Name", Value: orUnknown(res.GuildName), Inline: true},
		{Name: "Invited Channel Name", Value: channel, Inline: true},
		{Name: "Invited Guild ID", Value: orUnknown(res.GuildID), Inline: true},
		{Name: "Invited Guild Creation Date", Value: orUnknown(created), Inline: true},
	}
	if res.HasCounts {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "Invited Guild User Count",
			Value: fmt.Sprintf("%d (%d online)", res.MemberCount, res.OnlineCount),
		})
	}

	limit := "∞"
	if banLimit > 0 {
		limit = fmt.Sprintf("%d", banLimit)
	}

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name:    fmt.Sprintf("Invite from %s intercepted!", a.Name),
			IconURL: a.AvatarURL,
		},
		Description: fmt.Sprintf("An invite with key `%s` by user %s (ID `%s`) was caught and filtered. Invite information below.",
			res.Code, a.Name, a.ID),
		Color:  ColorInfo,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Strike %d of %s, resets %s", strike, limit, resets.UTC().Format(DateTimeFormat)),
		},
	}
	if icon := res.IconURL(); icon != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: icon}
	}
	return embed
}

func AttachmentWarningEmbed(a Author) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: EmojiStop + " Whoa there, pardner!",
		Description: fmt.Sprintf("Hey there %s! You're sending files awfully fast. Please help us keep this chat "+
			"clean and readable by not sending lots of files so quickly. Thanks!", a.Mention()),
		Color: ColorWarning,
	}
}

func AttachmentAlertEmbed(a Author, count, seconds int, channelID string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{Name: "Possible Attachment Spam", IconURL: a.AvatarURL},
		Description: fmt.Sprintf("User %s has sent %d attachments in a %d-second period in channel <#%s>.",
			a.Name, count, seconds, channelID),
		Color:     ColorWarning,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
