// Package token implements the 'gharisk token' command.
// It stores a GitHub access token in the OS keyring (Windows Credential Manager,
// macOS Keychain or GNOME Keyring). The token is used if GHARISK_KEYRING_ENABLED
// is true and no token is set by environment variables.
package token

import (
	"log/slog"

	"github.com/gharisk/gharisk/pkg/github"
	"github.com/suzuki-shunsuke/urfave-cli-v3-util/keyring/ghtoken"
	"github.com/urfave/cli/v3"
)

func New(logger *slog.Logger) *cli.Command {
	return ghtoken.Command(ghtoken.NewActor(logger, github.KeyService))
}
