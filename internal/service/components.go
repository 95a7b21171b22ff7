package service

import (
	"github.com/bwmarrin/discordgo"
)

// Component custom ids shared by the messages the bot posts and the router.
const (
	CustomIDCreateTicket = "create_ticket"
	CustomIDCloseTicket  = "close_ticket"
	CustomIDLockVoice    = "lock"
	CustomIDUnlockVoice  = "unlock"
	CustomIDTicketModal  = "ticket_modal"
	CustomIDTicketReason = "ticket_reason"
	CustomIDVerifySelect = "verify_modal"
)

const (
	colorTicketSummary = 0x5539cc
	colorPanel         = 0xf55a00
	colorRed           = 0xED4245
	colorGreen         = 0x57F287
	colorYellow        = 0xFEE75C

	footerText    = "Provided by BBN"
	footerIconURL = "https://bbn.music/images/apple.png"
)

// CloseTicketRow is the action row carrying the close button of a ticket summary.
func CloseTicketRow() discordgo.ActionsRow {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			CustomID: CustomIDCloseTicket,
			Label:    "Close Ticket",
			Style:    discordgo.DangerButton,
		},
	}}
}

// TicketModal is the form shown when a member presses the create button.
func TicketModal() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: CustomIDTicketModal,
		Title:    "Kindly enter this information.",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID: CustomIDTicketReason,
					Label:    "Why do you want to open a ticket?",
					Style:    discordgo.TextInputParagraph,
					Required: true,
				},
			}},
		},
	}
}

// VerifySelect is the user picker replied to the verify command.
func VerifySelect() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType: discordgo.UserSelectMenu,
				CustomID: CustomIDVerifySelect,
			},
		}},
	}
}

func ticketPanel() *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "BBN - Ticket Support",
			Description: "If you have a problem or question regarding BBN, create a ticket and we will get back to you as soon as possible. To create a ticket click the button below.",
			Color:       colorPanel,
			Footer:      &discordgo.MessageEmbedFooter{Text: footerText, IconURL: footerIconURL},
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					CustomID: CustomIDCreateTicket,
					Label:    "Create Ticket",
					Style:    discordgo.SuccessButton,
				},
			}},
		},
	}
}
