package di

import (
	"github.com/gharisk/gharisk/pkg/config"
	"github.com/gharisk/gharisk/pkg/github"
)

// clientOptions builds options of the GitHub client from environment variables.
// The keyring is used only if no token is given.
func clientOptions(e *config.Env) *github.ClientOptions {
	token := e.GitHubToken()
	return &github.ClientOptions{
		Token:          token,
		EnterpriseURL:  e.EnterpriseURL(),
		KeyringEnabled: e.KeyringEnabled && token == "",
	}
}
