package utils

const (
	// Emojis
	EmojiTick  = "<:tcet_tick:1437995479567962184>"
	EmojiCross = "<:tcet_cross:1437995480754946178>"
	EmojiStop  = "🛑"

	// Colors
	ColorDark    = 0x2f3136
	ColorGreen   = 0x00FF00
	ColorRed     = 0xFF0000
	ColorWarning = 0xFFA500
	ColorInfo    = 0x3498DB

	// Ban reasons are prefixed with this tag in the audit log
	BanTag = "[AUTOMATIC BAN - AntiSpam Module]"

	DateTimeFormat = "Jan 2, 2006 15:04 MST"
)
