// Package scan implements the 'gharisk scan' command.
package scan

import (
	"context"
	"io"
	"strings"

	"github.com/gharisk/gharisk/pkg/cli/flag"
	"github.com/gharisk/gharisk/pkg/di"
	"github.com/gharisk/gharisk/pkg/risk"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func New(logE *logrus.Entry, gf *flag.GlobalFlags, version string, stdout io.Writer) *cli.Command {
	r := &runner{
		logE:    logE,
		flags:   &di.ScanFlags{GlobalFlags: gf},
		version: version,
		stdout:  stdout,
	}
	return r.Command()
}

type runner struct {
	logE    *logrus.Entry
	flags   *di.ScanFlags
	version string
	stdout  io.Writer
}

func (r *runner) Command() *cli.Command {
	tiers := strings.Join(lo.Map(risk.AllTiers(), func(t risk.Tier, _ int) string { return string(t) }), ", ")
	return &cli.Command{
		Name:  "scan",
		Usage: "Inventory actions used by the workflows of an organization and score their risk",
		Description: `Scan the default branches of the repositories of a GitHub organization.

$ gharisk scan --org my-org

You can also pass repositories instead of an organization.

$ gharisk scan --repo my-org/app --repo my-org/web

Reports are written into the output directory (default: gharisk-report).
`,
		Action: r.action,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "org",
				Usage:       "GitHub organization",
				Sources:     cli.EnvVars("GITHUB_REPOSITORY_OWNER"),
				Destination: &r.flags.Org,
			},
			&cli.StringSliceFlag{
				Name:        "repo",
				Aliases:     []string{"r"},
				Usage:       "repository full name such as my-org/app. If this is set, --org is ignored",
				Destination: &r.flags.Repositories,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output directory",
				Destination: &r.flags.OutputDir,
			},
			&cli.StringSliceFlag{
				Name:        "format",
				Aliases:     []string{"f"},
				Usage:       "report formats written to the output directory. One of json, csv, markdown, sarif. All by default",
				Destination: &r.flags.Formats,
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

func (r *runner) action(ctx context.Context, _ *cli.Command) error {
	return di.Scan(ctx, r.logE, r.flags, r.version, r.stdout) //nolint:wrapcheck
}

