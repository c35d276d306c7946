package di

import (
	"testing"

	"github.com/gharisk/gharisk/pkg/config"
	"github.com/gharisk/gharisk/pkg/github"
	"github.com/google/go-cmp/cmp"
)

func Test_clientOptions(t *testing.T) {
	t.Parallel()
	data := []struct {
		name string
		env  map[string]string
		exp  *github.ClientOptions
	}{
		{
			name: "empty",
			env:  map[string]string{},
			exp:  &github.ClientOptions{},
		},
		{
			name: "gharisk token takes precedence",
			env:  map[string]string{"GITHUB_TOKEN": "gh_token", "GHARISK_GITHUB_TOKEN": "gharisk_token"},
			exp:  &github.ClientOptions{Token: "gharisk_token"},
		},
		{
			name: "ghes",
			env:  map[string]string{"GITHUB_TOKEN": "gh_token", "GITHUB_API_URL": "https://ghes.example.com/api/v3/"},
			exp:  &github.ClientOptions{Token: "gh_token", EnterpriseURL: "https://ghes.example.com/api/v3"},
		},
		{
			name: "github.com",
			env:  map[string]string{"GITHUB_API_URL": "https://api.github.com"},
			exp:  &github.ClientOptions{},
		},
		{
			name: "keyring",
			env:  map[string]string{"GHARISK_KEYRING_ENABLED": "true"},
			exp:  &github.ClientOptions{KeyringEnabled: true},
		},
		{
			name: "token disables keyring",
			env:  map[string]string{"GHARISK_KEYRING_ENABLED": "true", "GITHUB_TOKEN": "gh_token"},
			exp:  &github.ClientOptions{Token: "gh_token"},
		},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			t.Parallel()
			e, err := config.ReadEnv(d.env)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(d.exp, clientOptions(e)); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}
