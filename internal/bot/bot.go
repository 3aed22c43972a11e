package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/service"
)

var (
	// ErrInvalidToken means the configured token cannot be a bot token.
	ErrInvalidToken = errors.New("discord bot token has an invalid format")
	// ErrLoginTimeout means the gateway did not become ready in time.
	ErrLoginTimeout = errors.New("discord login timed out")
	// ErrOffline is returned by PostToChannel while the bot is not connected.
	ErrOffline = errors.New("discord bot is offline")
)

// Bot tokens are three base64url segments separated by dots.
var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{20,}\.[A-Za-z0-9_-]{4,}\.[A-Za-z0-9_-]{20,}$`)

// ValidToken reports whether token has the shape of a bot token.
func ValidToken(token string) bool {
	return tokenPattern.MatchString(token)
}

// Bot connects the command handler to the Discord gateway.
type Bot struct {
	cfg        config.DiscordConfig
	handler    *CommandHandler
	categories *service.CategoryService
	logger     *zap.Logger

	mu      sync.RWMutex
	session *discordgo.Session
	online  bool
}

// New validates the token and prepares a bot. It does not connect.
func New(cfg config.DiscordConfig, handler *CommandHandler, categories *service.CategoryService, logger *zap.Logger) (*Bot, error) {
	if !ValidToken(cfg.BotToken) {
		return nil, ErrInvalidToken
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{cfg: cfg, handler: handler, categories: categories, logger: logger}, nil
}

// Start opens the gateway connection under the login timeout and registers
// the command catalog under the registration timeout. On any failure the
// session is closed and the bot stays offline.
func (b *Bot) Start(ctx context.Context) error {
	session, err := discordgo.New("Bot " + b.cfg.BotToken)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	session.AddHandler(b.onInteraction)

	if err := openWithTimeout(session, b.cfg.LoginTimeout()); err != nil {
		return err
	}

	b.mu.Lock()
	b.session = session
	b.online = true
	b.mu.Unlock()

	if err := b.RegisterCommands(ctx); err != nil {
		_ = b.Close()
		return err
	}
	b.logger.Info("discord bot online", zap.String("app_id", b.appID(session)))
	return nil
}

func openWithTimeout(session *discordgo.Session, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- session.Open() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("open discord gateway: %w", err)
		}
		return nil
	case <-timer.C:
		// Close once Open gives up so the websocket does not leak.
		go func() {
			if <-errCh == nil {
				_ = session.Close()
			}
		}()
		return ErrLoginTimeout
	}
}

// RegisterCommands overwrites the /ticket catalog, scoped to the configured
// guild when set.
func (b *Bot) RegisterCommands(ctx context.Context) error {
	b.mu.RLock()
	session := b.session
	b.mu.RUnlock()
	if session == nil {
		return ErrOffline
	}

	categories, err := b.categories.List(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	appID := b.appID(session)
	if appID == "" {
		return errors.New("discord application id unknown")
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.RegisterTimeout())
	defer cancel()
	registered, err := session.ApplicationCommandBulkOverwrite(appID, b.cfg.GuildID, Commands(categories), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	b.logger.Info("discord commands registered", zap.Int("count", len(registered)), zap.String("guild_id", b.cfg.GuildID))
	return nil
}

func (b *Bot) appID(session *discordgo.Session) string {
	if b.cfg.AppID != "" {
		return b.cfg.AppID
	}
	if session.State != nil && session.State.User != nil {
		return session.State.User.ID
	}
	return ""
}

// Online reports whether the gateway connection is up.
func (b *Bot) Online() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.online
}

// PostToChannel sends a plain message to a channel.
func (b *Bot) PostToChannel(ctx context.Context, channelID, content string) error {
	b.mu.RLock()
	session, online := b.session, b.online
	b.mu.RUnlock()
	if !online {
		return ErrOffline
	}
	_, err := session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return err
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	b.mu.Lock()
	session := b.session
	b.session, b.online = nil, false
	b.mu.Unlock()
	if session == nil {
		return nil
	}
	return session.Close()
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	inv, ok := ParseInteraction(i)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reply := b.handler.Handle(ctx, inv)
	if err := s.InteractionRespond(i.Interaction, toResponse(reply), discordgo.WithContext(ctx)); err != nil {
		b.logger.Warn("discord interaction response failed", zap.String("command", inv.Kind), zap.Error(err))
	}
}

func toResponse(r Reply) *discordgo.InteractionResponse {
	data := &discordgo.InteractionResponseData{
		Content:    r.Content,
		Embeds:     r.Embeds,
		Components: r.Components,
	}
	if r.Update {
		// Clear the pressed button.
		if data.Components == nil {
			data.Components = []discordgo.MessageComponent{}
		}
		return &discordgo.InteractionResponse{Type: discordgo.InteractionResponseUpdateMessage, Data: data}
	}
	data.Flags = discordgo.MessageFlagsEphemeral
	return &discordgo.InteractionResponse{Type: discordgo.InteractionResponseChannelMessageWithSource, Data: data}
}
