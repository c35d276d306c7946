package config

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

const defaultAPIURL = "https://api.github.com"

// Env is the configuration read from environment variables.
type Env struct {
	Token         string `env:"GHARISK_GITHUB_TOKEN"`
	FallbackToken string `env:"GITHUB_TOKEN"`
	// APIURL is set by GitHub Actions. It is the REST API endpoint of GHES on GHES runners.
	APIURL string `env:"GITHUB_API_URL"`
	// Repository is set by GitHub Actions and names local workflow files.
	Repository     string `env:"GITHUB_REPOSITORY"`
	GitHubActions  bool   `env:"GITHUB_ACTIONS"`
	KeyringEnabled bool   `env:"GHARISK_KEYRING_ENABLED"`
}

// ReadEnv parses environment variables.
// If environ is nil, the environment of the process is used.
func ReadEnv(environ map[string]string) (*Env, error) {
	e := &Env{}
	if err := env.ParseWithOptions(e, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse environment variables: %w", err)
	}
	return e, nil
}

// GitHubToken returns GHARISK_GITHUB_TOKEN, or GITHUB_TOKEN if it's empty.
func (e *Env) GitHubToken() string {
	return cmp.Or(e.Token, e.FallbackToken)
}

// EnterpriseURL returns the base URL of GitHub Enterprise Server,
// or an empty string for github.com.
func (e *Env) EnterpriseURL() string {
	u := strings.TrimSuffix(e.APIURL, "/")
	if u == defaultAPIURL {
		return ""
	}
	return u
}
