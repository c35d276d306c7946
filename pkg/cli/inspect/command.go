// Package inspect implements the 'gharisk inspect' command.
package inspect

import (
	"context"
	"io"
	"strings"

	"github.com/gharisk/gharisk/pkg/cli/flag"
	"github.com/gharisk/gharisk/pkg/di"
	"github.com/gharisk/gharisk/pkg/report"
	"github.com/gharisk/gharisk/pkg/risk"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func New(logE *logrus.Entry, gf *flag.GlobalFlags, version string, stdout io.Writer) *cli.Command {
	r := &runner{
		logE:    logE,
		flags:   &di.InspectFlags{GlobalFlags: gf},
		version: version,
		stdout:  stdout,
	}
	return r.Command()
}

type runner struct {
	logE    *logrus.Entry
	flags   *di.InspectFlags
	version string
	stdout  io.Writer
}

func (r *runner) Command() *cli.Command {
	tiers := strings.Join(lo.Map(risk.AllTiers(), func(t risk.Tier, _ int) string { return string(t) }), ", ")
	return &cli.Command{
		Name:  "inspect",
		Usage: "Score the risk of actions used by local workflow files",
		Description: `If no argument is passed, gharisk searches workflow files from .github/workflows.

$ gharisk inspect

You can also pass workflow file paths as arguments.

e.g.

$ gharisk inspect .github/workflows/release.yaml

On GitHub Actions, workflows are named by $GITHUB_REPOSITORY.
`,
		ArgsUsage: "[<workflow file> ...]",
		Action:    r.action,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"f"},
				Usage:       "output format (" + strings.Join(report.Formats(), ", ") + ")",
				Value:       string(report.FormatConsole),
				Destination: &r.flags.Format,
			},
			&cli.StringFlag{
				Name:        "repo",
				Aliases:     []string{"r"},
				Usage:       "repository name of the workflow files",
				Destination: &r.flags.Repository,
			},
			&cli.StringFlag{
				Name:        "default-branch",
				Usage:       "default branch of the repository. It is a production branch",
				Destination: &r.flags.DefaultBranch,
			},
			&cli.StringFlag{
				Name:        "min-tier",
				Usage:       "the lowest tier reported to SARIF and the console (" + tiers + ")",
				Value:       string(risk.TierMedium),
				Destination: &r.flags.MinTier,
			},
			&cli.StringFlag{
				Name:        "fail-on",
				Usage:       "exit with a non-zero status code if a usage reaches the tier (" + tiers + ")",
				Destination: &r.flags.FailOn,
			},
			&cli.IntFlag{
				Name:        "top",
				Usage:       "the number of actions and repositories ranked in summaries. 0 means no limit",
				Value:       10, //nolint:mnd
				Destination: &r.flags.Top,
			},
			&cli.BoolFlag{
				Name:        "resolve-refs",
				Usage:       "look up whether versions of actions are tags or branches via GitHub API",
				Destination: &r.flags.ResolveRefs,
			},
		},
	}
}

func (r *runner) action(ctx context.Context, c *cli.Command) error {
	r.flags.Args = c.Args().Slice()
	return di.Inspect(ctx, r.logE, r.flags, r.version, r.stdout) //nolint:wrapcheck
}
