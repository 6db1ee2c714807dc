// Package auth covers browser login: the OAuth2 authorization code flow
// against Google and GitHub, and the signed session tokens handed to the
// frontend afterwards.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	ProviderGoogle = "google"
	ProviderGithub = "github"
)

// ErrUnknownProvider is returned for provider names outside the registry.
var ErrUnknownProvider = errors.New("auth: unknown provider")

// Profile is the normalized identity extracted from a provider's userinfo
// endpoint.
type Profile struct {
	Email    string
	Name     string
	Picture  string
	Provider string
}

type ProviderCredentials struct {
	GoogleClientID     string
	GoogleClientSecret string
	GithubClientID     string
	GithubClientSecret string

	// RedirectBase is the externally visible base URL of this server; the
	// per-provider callback path is appended to it.
	RedirectBase string
}

// OAuth drives the authorization code flow for all registered providers.
type OAuth struct {
	configs    map[string]*oauth2.Config
	httpClient *http.Client
}

func NewOAuth(creds ProviderCredentials) *OAuth {
	configs := map[string]*oauth2.Config{
		ProviderGoogle: {
			ClientID:     creds.GoogleClientID,
			ClientSecret: creds.GoogleClientSecret,
			Endpoint:     endpoints.Google,
			RedirectURL:  creds.RedirectBase + "/auth/callback/google",
			Scopes:       []string{"openid", "email", "profile"},
		},
		ProviderGithub: {
			ClientID:     creds.GithubClientID,
			ClientSecret: creds.GithubClientSecret,
			Endpoint:     endpoints.GitHub,
			RedirectURL:  creds.RedirectBase + "/auth/callback/github",
			Scopes:       []string{"read:user", "user:email"},
		},
	}
	return &OAuth{
		configs:    configs,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// AuthURL returns the provider's consent page URL for the given state.
func (o *OAuth) AuthURL(provider, state string) (string, error) {
	cfg, ok := o.configs[provider]
	if !ok {
		return "", ErrUnknownProvider
	}
	return cfg.AuthCodeURL(state), nil
}

// Exchange trades the callback code for a token and fetches the user's
// profile from the provider.
func (o *OAuth) Exchange(ctx context.Context, provider, code string) (*Profile, error) {
	cfg, ok := o.configs[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: code exchange: %w", err)
	}

	client := cfg.Client(ctx, token)
	var profile *Profile
	switch provider {
	case ProviderGoogle:
		profile, err = fetchGoogleProfile(ctx, client)
	case ProviderGithub:
		profile, err = fetchGithubProfile(ctx, client)
	}
	if err != nil {
		return nil, err
	}
	profile.Provider = provider
	return profile, nil
}

// NewState returns an unguessable state value for CSRF protection.
func NewState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func fetchGoogleProfile(ctx context.Context, client *http.Client) (*Profile, error) {
	var info struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := getJSON(ctx, client, "https://www.googleapis.com/oauth2/v2/userinfo", &info); err != nil {
		return nil, err
	}
	if info.Email == "" {
		return nil, errors.New("auth: google profile has no email")
	}
	return &Profile{Email: info.Email, Name: info.Name, Picture: info.Picture}, nil
}

func fetchGithubProfile(ctx context.Context, client *http.Client) (*Profile, error) {
	var info struct {
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, client, "https://api.github.com/user", &info); err != nil {
		return nil, err
	}

	email := info.Email
	if email == "" {
		// Public email is often unset; fall back to the emails endpoint.
		var emails []struct {
			Email   string `json:"email"`
			Primary bool   `json:"primary"`
		}
		if err := getJSON(ctx, client, "https://api.github.com/user/emails", &emails); err != nil {
			return nil, err
		}
		for _, e := range emails {
			if e.Primary {
				email = e.Email
				break
			}
		}
		if email == "" && len(emails) > 0 {
			email = emails[0].Email
		}
	}
	if email == "" {
		return nil, errors.New("auth: github profile has no email")
	}

	name := info.Name
	if name == "" {
		name = info.Login
	}
	return &Profile{Email: email, Name: name, Picture: info.AvatarURL}, nil
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("auth: userinfo request to %s: status %d: %s", rawURL, resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
