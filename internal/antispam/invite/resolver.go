package invite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"discord-antispam-bot/internal/engine/acl"
	"discord-antispam-bot/internal/metrics"

	"github.com/bwmarrin/discordgo"
	"github.com/tidwall/gjson"
)

// ErrInvalidInvite is returned when Discord reports the invite does not exist
var ErrInvalidInvite = errors.New("invalid invite")

// Requester performs a raw REST call. *discordgo.Session satisfies it.
type Requester interface {
	RequestWithBucketID(method, urlStr string, data interface{}, bucketID string, options ...discordgo.RequestOption) ([]byte, error)
}

// Resolution is the target community of a resolved invite
type Resolution struct {
	Code           string
	GuildID        string
	GuildName      string
	GuildIcon      string
	GuildCreatedAt time.Time
	ChannelName    string
	ChannelType    discordgo.ChannelType
	HasCounts      bool
	MemberCount    int64
	OnlineCount    int64
}

// IconURL returns the guild icon URL, or "" when the guild has none
func (r *Resolution) IconURL() string {
	if r.GuildID == "" || r.GuildIcon == "" {
		return ""
	}
	return discordgo.EndpointGuildIcon(r.GuildID, r.GuildIcon)
}

// ChannelLabel renders the channel name with a prefix for its kind
func (r *Resolution) ChannelLabel() string {
	switch r.ChannelType {
	case discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice:
		return "[VC] " + r.ChannelName
	case discordgo.ChannelTypeGuildCategory:
		return "[CAT] " + r.ChannelName
	default:
		return "#" + r.ChannelName
	}
}

// Resolver looks invites up against the Discord API
type Resolver struct {
	client Requester
}

// NewResolver creates a resolver on top of a REST client
func NewResolver(client Requester) *Resolver {
	return &Resolver{client: client}
}

// Resolve fetches the invite with approximate counts.
// A 404 yields ErrInvalidInvite; any other failure is returned wrapped.
func (r *Resolver) Resolve(ctx context.Context, code string) (*Resolution, error) {
	start := time.Now()
	body, err := r.client.RequestWithBucketID(
		http.MethodGet,
		discordgo.EndpointInvite(code)+"?with_counts=true",
		nil,
		discordgo.EndpointInvite(""),
		discordgo.WithContext(ctx),
	)
	metrics.InviteResolveDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if acl.IsNotFound(err) {
			metrics.InviteResolutions.WithLabelValues("not_found").Inc()
			return nil, fmt.Errorf("%w: %s", ErrInvalidInvite, code)
		}
		metrics.InviteResolutions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("resolve invite %s: %w", code, err)
	}

	res, err := parseResolution(code, body)
	if err != nil {
		metrics.InviteResolutions.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.InviteResolutions.WithLabelValues("resolved").Inc()
	return res, nil
}

func parseResolution(code string, body []byte) (*Resolution, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("resolve invite %s: malformed response", code)
	}
	doc := gjson.ParseBytes(body)

	res := &Resolution{
		Code:        code,
		GuildID:     doc.Get("guild.id").String(),
		GuildName:   doc.Get("guild.name").String(),
		GuildIcon:   doc.Get("guild.icon").String(),
		ChannelName: doc.Get("channel.name").String(),
		ChannelType: discordgo.ChannelType(doc.Get("channel.type").Int()),
	}
	if res.GuildID != "" {
		if ts, err := discordgo.SnowflakeTimestamp(res.GuildID); err == nil {
			res.GuildCreatedAt = ts
		}
	}
	if members := doc.Get("approximate_member_count"); members.Exists() {
		res.HasCounts = true
		res.MemberCount = members.Int()
		res.OnlineCount = doc.Get("approximate_presence_count").Int()
	}
	return res, nil
}
