package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Repo is a repository whose workflows are scanned.
type Repo struct {
	Owner         string
	Name          string
	DefaultBranch string
	Archived      bool
	Fork          bool
}

func (r *Repo) FullName() string {
	return r.Owner + "/" + r.Name
}

func newRepo(repo *Repository) *Repo {
	return &Repo{
		Owner:         repo.GetOwner().GetLogin(),
		Name:          repo.GetName(),
		DefaultBranch: repo.GetDefaultBranch(),
		Archived:      repo.GetArchived(),
		Fork:          repo.GetFork(),
	}
}

// RepositoryLister lists the repositories of an organization.
type RepositoryLister struct {
	repos           RepositoriesService
	retrier         *retrier
	IncludeArchived bool
	IncludeForks    bool
}

func NewRepositoryLister(logE *logrus.Entry, repos RepositoriesService) *RepositoryLister {
	return &RepositoryLister{
		repos:   repos,
		retrier: newRetrier(logE),
	}
}

// List returns every repository of org page by page.
// Archived repositories and forks are skipped unless they are included explicitly.
func (l *RepositoryLister) List(ctx context.Context, org string) ([]*Repo, error) {
	var allRepos []*Repo
	opts := &RepositoryListByOrgOptions{
		ListOptions: ListOptions{
			PerPage: 100,
		},
	}
	for {
		repos, resp, err := retry(ctx, l.retrier, func() ([]*Repository, *Response, error) {
			return l.repos.ListByOrg(ctx, org, opts) //nolint:wrapcheck
		})
		if err != nil {
			return nil, fmt.Errorf("list repositories of an organization: %w", err)
		}
		for _, repo := range repos {
			r := newRepo(repo)
			if (r.Archived && !l.IncludeArchived) || (r.Fork && !l.IncludeForks) {
				continue
			}
			allRepos = append(allRepos, r)
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return allRepos, nil
}

// Get returns a repository by its full name owner/repo.
// A repository given explicitly is returned even if it's archived.
func (l *RepositoryLister) Get(ctx context.Context, fullName string) (*Repo, error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("repository must be owner/repo: %s", fullName)
	}
	repo, _, err := retry(ctx, l.retrier, func() (*Repository, *Response, error) {
		return l.repos.Get(ctx, owner, name) //nolint:wrapcheck
	})
	if err != nil {
		return nil, fmt.Errorf("get a repository: %w", err)
	}
	r := newRepo(repo)
	if r.Owner == "" {
		r.Owner = owner
	}
	if r.Name == "" {
		r.Name = name
	}
	return r, nil
}
