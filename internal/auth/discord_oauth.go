package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

const defaultDiscordAPIBase = "https://discord.com/api"

// DiscordEndpoint is Discord's OAuth2 endpoint.
var DiscordEndpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// DiscordOAuthConfig configures the identity-provider client.
type DiscordOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// APIBase and Endpoint are overridable for tests.
	APIBase  string
	Endpoint *oauth2.Endpoint
}

// DiscordProfile is the identity returned after a successful login.
type DiscordProfile struct {
	ID            string            `json:"id"`
	Username      string            `json:"username"`
	Discriminator string            `json:"discriminator"`
	Avatar        *string           `json:"avatar"`
	Guilds        []GuildMembership `json:"-"`
}

// DiscordOAuthClient performs the authorization-code flow against Discord.
type DiscordOAuthClient struct {
	config  *oauth2.Config
	apiBase string
}

func NewDiscordOAuthClient(cfg DiscordOAuthConfig) *DiscordOAuthClient {
	endpoint := DiscordEndpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = defaultDiscordAPIBase
	}
	return &DiscordOAuthClient{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"identify", "guilds"},
			Endpoint:     endpoint,
		},
		apiBase: apiBase,
	}
}

// AuthURL returns the consent page URL carrying state.
func (c *DiscordOAuthClient) AuthURL(state string) string {
	return c.config.AuthCodeURL(state)
}

// Exchange trades the authorization code for a token and loads the profile
// together with the caller's guild memberships.
func (c *DiscordOAuthClient) Exchange(ctx context.Context, code string) (*DiscordProfile, error) {
	token, err := c.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	client := c.config.Client(ctx, token)

	var profile DiscordProfile
	if err := c.getJSON(ctx, client, "/users/@me", &profile); err != nil {
		return nil, err
	}
	if err := c.getJSON(ctx, client, "/users/@me/guilds", &profile.Guilds); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *DiscordOAuthClient) getJSON(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("failed to get %s: status %d, body: %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
