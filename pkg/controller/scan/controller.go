// Package scan inventories the workflows of the repositories of a GitHub organization.
package scan

import (
	"context"
	"io"

	"github.com/gharisk/gharisk/pkg/action"
	"github.com/gharisk/gharisk/pkg/engine"
	"github.com/gharisk/gharisk/pkg/github"
	"github.com/gharisk/gharisk/pkg/report"
	"github.com/gharisk/gharisk/pkg/risk"
	"github.com/spf13/afero"
)

type Controller struct {
	repos     RepositoryLister
	collector WorkflowCollector
	resolver  RefResolver
	engine    *engine.Engine
	writer    *report.Writer
	fs        afero.Fs
	stdout    io.Writer
	param     *Param
}

type Param struct {
	// Org is the organization whose repositories are scanned if Repositories is empty.
	Org string
	// Repositories are full names of repositories such as "owner/repo".
	Repositories []string
	OutputDir    string
	Formats      []report.Format
	FailOn       risk.Tier
	ResolveRefs  bool
}

type RepositoryLister interface {
	List(ctx context.Context, org string) ([]*github.Repo, error)
	Get(ctx context.Context, fullName string) (*github.Repo, error)
}

type WorkflowCollector interface {
	Collect(ctx context.Context, repos []*github.Repo) (*github.Collection, error)
}

type RefResolver interface {
	Resolve(ctx context.Context, versions []engine.ActionVersion) (action.StaticRefs, error)
}

func New(repos RepositoryLister, collector WorkflowCollector, resolver RefResolver, eng *engine.Engine, writer *report.Writer, fs afero.Fs, stdout io.Writer, param *Param) *Controller {
	return &Controller{
		repos:     repos,
		collector: collector,
		resolver:  resolver,
		engine:    eng,
		writer:    writer,
		fs:        fs,
		stdout:    stdout,
		param:     param,
	}
}
