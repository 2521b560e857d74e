package oauth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dimitrije/teamroom-api/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubAPI = "https://api.github.com"

type GitHubProvider struct {
	config  *oauth2.Config
	apiBase string
}

func NewGitHubProvider(cfg config.OAuthConfig) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"user:email", "read:user"},
			Endpoint:     github.Endpoint,
		},
		apiBase: githubAPI,
	}
}

func (p *GitHubProvider) Name() string {
	return "github"
}

func (p *GitHubProvider) GetConsentURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *GitHubProvider) ExchangeCode(ctx context.Context, code string) (*UserInfo, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	client := p.config.Client(ctx, token)

	var profile struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, client, "github", p.apiBase+"/user", &profile); err != nil {
		return nil, err
	}

	// The public profile email is unverified, so always ask the emails endpoint.
	email, err := p.verifiedEmail(ctx, client)
	if err != nil {
		return nil, err
	}

	name := profile.Name
	if name == "" {
		name = profile.Login
	}

	return &UserInfo{
		Email:     email,
		Name:      name,
		AvatarURL: profile.AvatarURL,
		ID:        strconv.FormatInt(profile.ID, 10),
		Provider:  "github",
	}, nil
}

// verifiedEmail prefers the primary address and falls back to any verified one.
func (p *GitHubProvider) verifiedEmail(ctx context.Context, client *http.Client) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, "github", p.apiBase+"/user/emails", &emails); err != nil {
		return "", err
	}

	fallback := ""
	for _, e := range emails {
		if !e.Verified {
			continue
		}
		if e.Primary {
			return e.Email, nil
		}
		if fallback == "" {
			fallback = e.Email
		}
	}
	if fallback == "" {
		return "", ErrNoVerifiedEmail
	}
	return fallback, nil
}
