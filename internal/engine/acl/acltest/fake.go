// Package acltest provides an in-memory Discord session for tests
package acltest

import (
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

type Deletion struct {
	ChannelID string
	MessageID string
}

type Sent struct {
	ChannelID string
	MessageID string
	Embed     *discordgo.MessageEmbed
}

type Ban struct {
	GuildID string
	UserID  string
	Reason  string
	Days    int
}

// Session records every call made against it
type Session struct {
	mu     sync.Mutex
	nextID int

	deletions []Deletion
	sent      []Sent
	bans      []Ban

	// Perms maps user id to the permission bits returned for any channel
	Perms map[string]int64

	DeleteErr func(channelID, messageID string) error
	SendErr   func(channelID string) error
	BanErr    func(guildID, userID string) error
	PermsErr  error
	PermCalls int

	// Invites maps an invite code to the raw API response body.
	// Codes missing from both maps resolve as 404.
	Invites     map[string][]byte
	InviteErrs  map[string]error
	inviteCalls []string
}

func NewSession() *Session {
	return &Session{
		Perms:      make(map[string]int64),
		Invites:    make(map[string][]byte),
		InviteErrs: make(map[string]error),
	}
}

// NotFound builds the error discordgo returns for a 404 response
func NotFound() error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound, Status: "404 Not Found"},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMessage, Message: "Unknown Message"},
	}
}

func (s *Session) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		if err := s.DeleteErr(channelID, messageID); err != nil {
			return err
		}
	}
	s.deletions = append(s.deletions, Deletion{ChannelID: channelID, MessageID: messageID})
	return nil
}

func (s *Session) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendErr != nil {
		if err := s.SendErr(channelID); err != nil {
			return nil, err
		}
	}
	s.nextID++
	id := "sent-" + strconv.Itoa(s.nextID)
	s.sent = append(s.sent, Sent{ChannelID: channelID, MessageID: id, Embed: embed})
	return &discordgo.Message{ID: id, ChannelID: channelID, Embeds: []*discordgo.MessageEmbed{embed}}, nil
}

func (s *Session) GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.BanErr != nil {
		if err := s.BanErr(guildID, userID); err != nil {
			return err
		}
	}
	s.bans = append(s.bans, Ban{GuildID: guildID, UserID: userID, Reason: reason, Days: days})
	return nil
}

func (s *Session) UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PermCalls++
	if s.PermsErr != nil {
		return 0, s.PermsErr
	}
	return s.Perms[userID], nil
}

func (s *Session) RequestWithBucketID(method, urlStr string, data interface{}, bucketID string, options ...discordgo.RequestOption) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := strings.TrimPrefix(urlStr, discordgo.EndpointInvite(""))
	if i := strings.IndexByte(code, '?'); i >= 0 {
		code = code[:i]
	}
	s.inviteCalls = append(s.inviteCalls, code)
	if err, ok := s.InviteErrs[code]; ok {
		return nil, err
	}
	if body, ok := s.Invites[code]; ok {
		return body, nil
	}
	return nil, NotFound()
}

// InviteCalls returns the invite codes resolved so far, in order
func (s *Session) InviteCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.inviteCalls...)
}

// InviteBody builds a minimal invite API response
func InviteBody(guildID, guildName string) []byte {
	return []byte(`{"code":"x","guild":{"id":"` + guildID + `","name":"` + guildName + `","icon":null},` +
		`"channel":{"id":"1","name":"general","type":0},"approximate_member_count":120,"approximate_presence_count":30}`)
}

func (s *Session) Deletions() []Deletion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Deletion(nil), s.deletions...)
}

func (s *Session) Sent() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sent(nil), s.sent...)
}

// SentTo returns the messages posted to one channel
func (s *Session) SentTo(channelID string) []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Sent
	for _, m := range s.sent {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	return out
}

func (s *Session) Bans() []Ban {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Ban(nil), s.bans...)
}
