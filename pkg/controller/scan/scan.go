package scan

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/gharisk/gharisk/pkg/action"
	"github.com/gharisk/gharisk/pkg/github"
	"github.com/gharisk/gharisk/pkg/report"
	"github.com/sirupsen/logrus"
	"github.com/suzuki-shunsuke/logrus-error/logerr"
)

// Scan collects the workflows of the repositories, scores their action usages
// and writes reports into the output directory.
// It returns report.ErrRiskThreshold if a usage reaches Param.FailOn.
func (c *Controller) Scan(ctx context.Context, logE *logrus.Entry) error {
	repos, err := c.listRepos(ctx)
	if err != nil {
		return err
	}
	logE.WithField("repositories", len(repos)).Info("collecting workflows")

	col, err := c.collector.Collect(ctx, repos)
	if err != nil {
		return fmt.Errorf("collect workflows: %w", err)
	}
	ex, err := c.engine.Extract(ctx, col.Workflows)
	if err != nil {
		return fmt.Errorf("extract action usages: %w", err)
	}
	ex.Errors = slices.Concat(col.Errors, ex.Errors)

	var refs action.RefLookup
	if c.param.ResolveRefs {
		versions := ex.ActionVersions()
		logE.WithField("versions", len(versions)).Debug("resolving refs of actions")
		m, err := c.resolver.Resolve(ctx, versions)
		if err != nil {
			return fmt.Errorf("resolve refs of actions: %w", err)
		}
		refs = m
	}

	result, err := c.engine.Score(ctx, ex, refs)
	if err != nil {
		return fmt.Errorf("score action usages: %w", err)
	}
	for _, e := range result.Errors {
		logerr.WithError(logE, e.Err).WithFields(logrus.Fields{
			"repository":    e.Document.Repository,
			"workflow_file": e.Document.Path,
		}).Warn("skip a workflow file")
	}

	r := report.New(result, c.writer.Top)
	paths, err := c.writer.WriteFiles(c.fs, c.param.OutputDir, c.param.Formats, r)
	if err != nil {
		return fmt.Errorf("write reports: %w", err)
	}
	for _, p := range paths {
		logE.WithField("report", p).Info("wrote a report")
	}
	if err := c.writer.Write(c.stdout, report.FormatConsole, r); err != nil {
		return fmt.Errorf("output a summary: %w", err)
	}
	return r.CheckThreshold(c.param.FailOn) //nolint:wrapcheck
}

func (c *Controller) listRepos(ctx context.Context) ([]*github.Repo, error) {
	if len(c.param.Repositories) == 0 {
		if c.param.Org == "" {
			return nil, errors.New("an organization or repositories are required")
		}
		repos, err := c.repos.List(ctx, c.param.Org)
		if err != nil {
			return nil, fmt.Errorf("list repositories: %w", logerr.WithFields(err, logrus.Fields{"org": c.param.Org}))
		}
		return repos, nil
	}
	repos := make([]*github.Repo, 0, len(c.param.Repositories))
	for _, name := range c.param.Repositories {
		repo, err := c.repos.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("get a repository: %w", logerr.WithFields(err, logrus.Fields{"repository": name}))
		}
		repos = append(repos, repo)
	}
	return repos, nil
}
