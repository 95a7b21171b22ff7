package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/bbn-music/community-bot/internal/domain"
	"github.com/bbn-music/community-bot/internal/gateway"
)

// 175928847299117063 is the snowflake used in the platform's own docs.
var docUser = &discordgo.User{ID: "175928847299117063", Username: "alice"}

func TestDefaultUserEmbed(t *testing.T) {
	embed := DefaultUserEmbed(docUser, fixedNow)

	if embed.Title != "User" || embed.Color != 0xED4245 {
		t.Fatalf("unexpected title/color %q %x", embed.Title, embed.Color)
	}
	if embed.Fields[0].Name != "User Creation Time" || embed.Fields[0].Value != "2016-04-30T11:18:25.796Z" {
		t.Fatalf("unexpected creation field %+v", embed.Fields[0])
	}
	if embed.Fields[1].Name != "ID" || embed.Fields[1].Value != docUser.ID {
		t.Fatalf("unexpected id field %+v", embed.Fields[1])
	}
	if embed.Footer.Text != "Provided by BBN" || embed.Author.Name != "alice" {
		t.Fatalf("unexpected footer/author %+v %+v", embed.Footer, embed.Author)
	}

	bot := DefaultUserEmbed(&discordgo.User{ID: docUser.ID, Username: "helper", Bot: true}, fixedNow)
	if bot.Title != "Bot" || bot.Fields[0].Name != "Bot Creation Time" {
		t.Fatalf("unexpected bot embed %q %q", bot.Title, bot.Fields[0].Name)
	}
}

func TestBanEmbed(t *testing.T) {
	banned := BanEmbed(docUser, "", true, fixedNow)
	if banned.Title != "User banned" {
		t.Fatalf("unexpected title %q", banned.Title)
	}
	last := banned.Fields[len(banned.Fields)-1]
	if last.Name != "Reason" || last.Value != "Not specified" {
		t.Fatalf("unexpected reason field %+v", last)
	}

	unbanned := BanEmbed(docUser, "spam", false, fixedNow)
	if unbanned.Title != "User unbanned" || unbanned.Fields[2].Value != "spam" {
		t.Fatalf("unexpected unban embed %q %+v", unbanned.Title, unbanned.Fields[2])
	}
}

func TestPrivateMessageEmbed(t *testing.T) {
	embed := PrivateMessageEmbed(&discordgo.Message{ID: "m1", Content: "hi there", Author: docUser}, fixedNow)

	if embed.Title != "Private message received" || embed.Color != 0x57F287 {
		t.Fatalf("unexpected title/color %q %x", embed.Title, embed.Color)
	}
	if embed.Fields[1].Name != "User ID" {
		t.Fatalf("second field not renamed: %q", embed.Fields[1].Name)
	}
	if embed.Fields[3].Value != "<@175928847299117063>" || embed.Fields[4].Value != "m1" {
		t.Fatalf("unexpected mention/message fields %+v %+v", embed.Fields[3], embed.Fields[4])
	}
	if embed.Description != "```hi there```" {
		t.Fatalf("unexpected description %q", embed.Description)
	}
}

func TestVoiceEmbedColors(t *testing.T) {
	before := domain.VoiceSnapshot{ChannelID: "v1", ChannelName: "Lobby", Members: 3}
	after := domain.VoiceSnapshot{ChannelID: "v2", ChannelName: "Talk 1", Members: 2}

	cases := []struct {
		transition domain.VoiceTransition
		color      int
	}{
		{domain.VoiceJoined, 0x57F287},
		{domain.VoiceLeft, 0xED4245},
		{domain.VoiceMuted, 0xED4245},
		{domain.VoiceUnmuted, 0x57F287},
		{domain.VoiceSwitched, 0xFEE75C},
	}
	for _, tc := range cases {
		embed := VoiceEmbed("alice", tc.transition, before, after, fixedNow)
		if embed.Color != tc.color {
			t.Fatalf("%s: expected color %x, got %x", tc.transition, tc.color, embed.Color)
		}
		if embed.Title != "alice "+string(tc.transition) {
			t.Fatalf("unexpected title %q", embed.Title)
		}
	}

	left := VoiceEmbed("alice", domain.VoiceLeft, before, domain.VoiceSnapshot{}, fixedNow)
	if left.Fields[0].Value != "Lobby" || left.Fields[1].Value != "3" {
		t.Fatalf("left embed should describe the old channel, got %+v %+v", left.Fields[0], left.Fields[1])
	}
}

type fakeLocator struct {
	channel *gateway.Channel
}

func (l fakeLocator) OpenChannelFor(context.Context, string) (*gateway.Channel, error) {
	return l.channel, nil
}

func newNotifier(gw *fakeGateway, locator TicketChannelLocator) *NotificationService {
	cfg := testDiscordConfig()
	cfg.VoiceLogChannelID = "voice-log"
	cfg.VoiceStatusChannelName = "Talk 1"
	cfg.VoiceStatusText = "❤"
	return NewNotificationService(NotificationDependencies{Gateway: gw, Tickets: locator, Config: cfg, Now: func() time.Time { return fixedNow }})
}

func TestNotifyLeaveEchoesIntoTicket(t *testing.T) {
	gw := newFakeGateway()
	n := newNotifier(gw, fakeLocator{channel: &gateway.Channel{ID: "ticket-chan"}})

	if err := n.NotifyLeave(context.Background(), docUser); err != nil {
		t.Fatalf("notify leave: %v", err)
	}
	logged := gw.sentTo(logChannel)
	echoed := gw.sentTo("ticket-chan")
	if len(logged) != 1 || len(echoed) != 1 {
		t.Fatalf("expected log and ticket copies, got %d/%d", len(logged), len(echoed))
	}
	if logged[0].Embeds[0].Title != "User left" {
		t.Fatalf("unexpected title %q", logged[0].Embeds[0].Title)
	}
}

func TestNotifyBanUsesRecordedReason(t *testing.T) {
	gw := newFakeGateway()
	gw.bans[docUser.ID] = "raiding"
	n := newNotifier(gw, nil)

	if err := n.NotifyBan(context.Background(), docUser, true); err != nil {
		t.Fatalf("notify ban: %v", err)
	}
	fields := gw.sentTo(logChannel)[0].Embeds[0].Fields
	if fields[len(fields)-1].Value != "raiding" {
		t.Fatalf("unexpected reason %+v", fields[len(fields)-1])
	}
}

func TestNotifyDirectMessageSkipsBots(t *testing.T) {
	gw := newFakeGateway()
	n := newNotifier(gw, nil)

	_ = n.NotifyDirectMessage(context.Background(), &discordgo.Message{ID: "m1", Author: &discordgo.User{ID: "1", Bot: true}})
	if len(gw.sentTo(logChannel)) != 0 {
		t.Fatalf("bot messages must not be mirrored")
	}
	_ = n.NotifyDirectMessage(context.Background(), &discordgo.Message{ID: "m2", Content: "hey", Author: docUser})
	if len(gw.sentTo(logChannel)) != 1 {
		t.Fatalf("expected mirrored message")
	}
}

func TestNotifyVoiceMultipleTransitionsAndStatus(t *testing.T) {
	gw := newFakeGateway()
	n := newNotifier(gw, nil)

	before := domain.VoiceSnapshot{}
	after := domain.VoiceSnapshot{ChannelID: "v1", ChannelName: "Talk 1", Members: 1, Muted: true}
	if err := n.NotifyVoice(context.Background(), "alice", before, after); err != nil {
		t.Fatalf("notify voice: %v", err)
	}

	sent := gw.sentTo("voice-log")
	if len(sent) != 2 {
		t.Fatalf("expected joined and muted, got %d", len(sent))
	}
	if !strings.HasSuffix(sent[0].Embeds[0].Title, "joined") || !strings.HasSuffix(sent[1].Embeds[0].Title, "muted") {
		t.Fatalf("unexpected order %q, %q", sent[0].Embeds[0].Title, sent[1].Embeds[0].Title)
	}
	if gw.statuses["v1"] != "❤" {
		t.Fatalf("expected voice status set, got %q", gw.statuses["v1"])
	}
}

func TestNotifyVoiceIgnoresOtherChannels(t *testing.T) {
	gw := newFakeGateway()
	n := newNotifier(gw, nil)

	before := domain.VoiceSnapshot{ChannelID: "v1", ChannelName: "Talk 1"}
	after := domain.VoiceSnapshot{ChannelID: "v2", ChannelName: "Gaming"}
	if err := n.NotifyVoice(context.Background(), "alice", before, after); err != nil {
		t.Fatalf("notify voice: %v", err)
	}
	if len(gw.statuses) != 0 {
		t.Fatalf("status must only be set for the status channel, got %v", gw.statuses)
	}
	if sent := gw.sentTo("voice-log"); len(sent) != 1 || sent[0].Embeds[0].Color != 0xFEE75C {
		t.Fatalf("expected one switched embed")
	}
}
