// Package github collects workflow files and action refs through the GitHub REST API.
// This package wraps go-github with the three collaborators of a scan:
// a repository lister, a workflow collector and a ref resolver.
// Requests are authenticated with a static token or a token stored in the OS keyring,
// and requests limited by the rate limit are retried.
package github

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gharisk/gharisk/pkg/log"
	"github.com/google/go-github/v74/github"
	"github.com/sirupsen/logrus"
	"github.com/suzuki-shunsuke/urfave-cli-v3-util/keyring/ghtoken"
	"golang.org/x/oauth2"
)

// KeyService is the service name of the GitHub access token in the OS keyring.
const KeyService = "gharisk/gharisk"

type (
	Client                      = github.Client
	ListOptions                 = github.ListOptions
	Reference                   = github.Reference
	Repository                  = github.Repository
	RepositoryContent           = github.RepositoryContent
	RepositoryContentGetOptions = github.RepositoryContentGetOptions
	RepositoryListByOrgOptions  = github.RepositoryListByOrgOptions
	Response                    = github.Response
	ErrorResponse               = github.ErrorResponse
	RateLimitError              = github.RateLimitError
	AbuseRateLimitError         = github.AbuseRateLimitError
	Rate                        = github.Rate
	Timestamp                   = github.Timestamp
	User                        = github.User
)

// ClientOptions configures the authentication and the API endpoint of a client.
type ClientOptions struct {
	// Token is a GitHub access token. If it's empty, the keyring is used if enabled.
	Token string
	// EnterpriseURL is the base URL of GitHub Enterprise Server.
	// An empty string means github.com.
	EnterpriseURL  string
	KeyringEnabled bool
}

// New creates a new GitHub API client with authentication.
//
// Parameters:
//   - ctx: context for OAuth2 token source
//   - logE: logrus entry for structured logging
//   - opts: token and endpoint of the client
//
// Returns a configured GitHub API client, or an error if the enterprise URL is invalid.
func New(ctx context.Context, logE *logrus.Entry, opts *ClientOptions) (*Client, error) {
	client := github.NewClient(getHTTPClientForGitHub(ctx, logE, opts))
	if opts.EnterpriseURL == "" {
		return client, nil
	}
	client, err := client.WithEnterpriseURLs(opts.EnterpriseURL, opts.EnterpriseURL)
	if err != nil {
		return nil, fmt.Errorf("configure a GitHub Enterprise Server URL: %w", err)
	}
	return client, nil
}

// Ptr returns a pointer to the provided value.
func Ptr[T any](v T) *T {
	return github.Ptr(v)
}

// getHTTPClientForGitHub creates an HTTP client configured for GitHub API access.
// It uses the token, or else the keyring if it's enabled, or else
// falls back to unauthenticated access.
func getHTTPClientForGitHub(ctx context.Context, logE *logrus.Entry, opts *ClientOptions) *http.Client {
	if opts.Token == "" {
		if opts.KeyringEnabled {
			return oauth2.NewClient(ctx, ghtoken.NewTokenSource(log.NewSlog(logE), KeyService))
		}
		logE.Debug("a GitHub access token isn't set, so the API is accessed without authentication")
		return http.DefaultClient
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: opts.Token},
	))
}
