package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// OAuthClientPathEnv names an explicit path to the Gmail OAuth client file.
// When set it takes precedence over the oauthClient.<env>.json lookup.
const OAuthClientPathEnv = "BLOODMATCH_OAUTH_CLIENT"

// OAuthClientConfig is the Google client file downloaded for the project that
// sends donor emails. Google issues it either as a desktop ("installed") or a
// web client; exactly one section is present.
type OAuthClientConfig struct {
	Installed *OAuthClient `json:"installed,omitempty" validate:"required_without=Web,excluded_with=Web"`
	Web       *OAuthClient `json:"web,omitempty" validate:"required_without=Installed"`

	// Path is where the file was read from
	Path string `json:"-"`
}

type OAuthClient struct {
	ClientID                string   `json:"client_id" validate:"required"`
	ProjectID               string   `json:"project_id" validate:"required"`
	AuthURI                 string   `json:"auth_uri" validate:"required,url"`
	TokenURI                string   `json:"token_uri" validate:"required,url"`
	AuthProviderX509CertURL string   `json:"auth_provider_x509_cert_url,omitempty" validate:"omitempty,url"`
	ClientSecret            string   `json:"client_secret" validate:"required"`
	RedirectURIs            []string `json:"redirect_uris" validate:"required,min=1,dive,uri"`
}

// Client returns whichever client section the file carries
func (c *OAuthClientConfig) Client() *OAuthClient {
	if c.Installed != nil {
		return c.Installed
	}
	return c.Web
}

// LoadOAuthClientWithEnv loads the Gmail client file named by
// BLOODMATCH_OAUTH_CLIENT, or else oauthClient.<env>.json from the current or
// home directory
func LoadOAuthClientWithEnv(env string) (*OAuthClientConfig, error) {
	if path := os.Getenv(OAuthClientPathEnv); path != "" {
		return LoadOAuthClientFromPath(path)
	}

	path, err := findFile(fmt.Sprintf("oauthClient.%s.json", env))
	if err != nil {
		return nil, fmt.Errorf("failed to find oauth client file (or set %s): %w", OAuthClientPathEnv, err)
	}
	return LoadOAuthClientFromPath(path)
}

func LoadOAuthClientFromPath(path string) (*OAuthClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth client file: %w", err)
	}

	var client OAuthClientConfig
	if err := json.Unmarshal(data, &client); err != nil {
		return nil, fmt.Errorf("failed to parse oauth client file %s: %w", path, err)
	}
	if err := validate.Struct(&client); err != nil {
		return nil, fmt.Errorf("oauth client validation failed for %s: %w", path, err)
	}

	client.Path = path
	return &client, nil
}
