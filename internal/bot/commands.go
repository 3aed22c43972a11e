package bot

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const (
	rootCommand        = "ticket"
	closeButtonPrefix  = "closeTicket_"
	maxCategoryChoices = 25
)

// Subcommand names of /ticket.
const (
	SubcommandCreate = "create"
	SubcommandList   = "list"
	SubcommandView   = "view"
	SubcommandClose  = "close"
	// ButtonClose is the close affordance shown by view.
	ButtonClose = "button_close"
)

// Commands builds the /ticket command catalog. Category choices come from
// storage so new categories show up on the next registration.
func Commands(categories []domain.TicketCategory) []*discordgo.ApplicationCommand {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(categories))
	for _, c := range categories {
		if len(choices) == maxCategoryChoices {
			break
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: c.Name, Value: c.ID})
	}

	ticketID := []*discordgo.ApplicationCommandOption{{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "id",
		Description: "Ticket ID",
		Required:    true,
	}}

	return []*discordgo.ApplicationCommand{{
		Name:        rootCommand,
		Description: "Ticket management commands",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        SubcommandCreate,
				Description: "Create a new support ticket",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "title", Description: "Title of your ticket", Required: true},
					{Type: discordgo.ApplicationCommandOptionString, Name: "description", Description: "Describe your issue", Required: true},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "category", Description: "Ticket category", Required: true, Choices: choices},
					{Type: discordgo.ApplicationCommandOptionBoolean, Name: "urgent", Description: "Mark this ticket as urgent"},
				},
			},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: SubcommandList, Description: "List your open tickets"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: SubcommandView, Description: "View a specific ticket", Options: ticketID},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: SubcommandClose, Description: "Close a ticket", Options: ticketID},
		},
	}}
}

// Invocation is a parsed slash command or button press.
type Invocation struct {
	Kind    string
	User    domain.DiscordUser
	GuildID string

	Title       string
	Description string
	CategoryID  int64
	Urgent      bool
	TicketID    int64
}

// ParseInteraction converts a gateway interaction into an Invocation. ok is
// false for interactions this bot does not own.
func ParseInteraction(i *discordgo.InteractionCreate) (Invocation, bool) {
	inv := Invocation{GuildID: i.GuildID, User: interactionUser(i)}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		if data.Name != rootCommand || len(data.Options) == 0 {
			return inv, false
		}
		sub := data.Options[0]
		inv.Kind = sub.Name
		for _, opt := range sub.Options {
			switch opt.Name {
			case "title":
				inv.Title = opt.StringValue()
			case "description":
				inv.Description = opt.StringValue()
			case "category":
				inv.CategoryID = optionInt(opt)
			case "urgent":
				inv.Urgent = opt.BoolValue()
			case "id":
				inv.TicketID = optionInt(opt)
			}
		}
		switch inv.Kind {
		case SubcommandCreate, SubcommandList, SubcommandView, SubcommandClose:
			return inv, true
		}
		return inv, false
	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		if !strings.HasPrefix(customID, closeButtonPrefix) {
			return inv, false
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(customID, closeButtonPrefix), 10, 64)
		if err != nil {
			return inv, false
		}
		inv.Kind = ButtonClose
		inv.TicketID = id
		return inv, true
	}
	return inv, false
}

// optionInt accepts both integer options and legacy string choices.
func optionInt(opt *discordgo.ApplicationCommandInteractionDataOption) int64 {
	if opt.Type == discordgo.ApplicationCommandOptionString {
		n, _ := strconv.ParseInt(opt.StringValue(), 10, 64)
		return n
	}
	return opt.IntValue()
}

func interactionUser(i *discordgo.InteractionCreate) domain.DiscordUser {
	var u *discordgo.User
	switch {
	case i.Member != nil && i.Member.User != nil:
		u = i.Member.User
	case i.User != nil:
		u = i.User
	default:
		return domain.DiscordUser{}
	}
	user := domain.DiscordUser{ID: u.ID, Username: u.Username, Discriminator: u.Discriminator}
	if user.Discriminator == "" {
		user.Discriminator = "0"
	}
	if u.Avatar != "" {
		avatar := u.AvatarURL("")
		user.Avatar = &avatar
	}
	if i.GuildID != "" {
		guild := i.GuildID
		user.ServerID = &guild
	}
	return user
}

func closeButtonID(ticketID int64) string {
	return closeButtonPrefix + strconv.FormatInt(ticketID, 10)
}
