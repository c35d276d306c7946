// Package di wires configuration, the GitHub client and the engine into the controllers of the gharisk CLI.
package di

import (
	"cmp"
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gharisk/gharisk/pkg/analyze"
	"github.com/gharisk/gharisk/pkg/cli/flag"
	"github.com/gharisk/gharisk/pkg/config"
	"github.com/gharisk/gharisk/pkg/controller/inspect"
	"github.com/gharisk/gharisk/pkg/controller/scan"
	"github.com/gharisk/gharisk/pkg/engine"
	"github.com/gharisk/gharisk/pkg/github"
	"github.com/gharisk/gharisk/pkg/log"
	"github.com/gharisk/gharisk/pkg/report"
	"github.com/gharisk/gharisk/pkg/risk"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const githubWorkers = 4

// Scan executes the scan command.
func Scan(ctx context.Context, logE *logrus.Entry, flags *ScanFlags, version string, stdout io.Writer) error {
	fs := afero.NewOsFs()
	deps, err := setup(logE, fs, flags.GlobalFlags)
	if err != nil {
		return err
	}
	opts, err := flags.parse()
	if err != nil {
		return err
	}
	formats, err := parseFormats(flags.Formats)
	if err != nil {
		return err
	}
	gh, err := github.New(ctx, logE, clientOptions(deps.env))
	if err != nil {
		return fmt.Errorf("create a GitHub client: %w", err)
	}
	workers := cmp.Or(deps.cfg.Workers, githubWorkers)
	ctrl := scan.New(
		github.NewRepositoryLister(logE, gh.Repositories),
		github.NewWorkflowCollector(logE, gh.Repositories, workers),
		github.NewRefResolver(logE, gh.Git, workers),
		newEngine(deps.cfg),
		&report.Writer{Version: version, MinTier: opts.minTier, Top: flags.Top},
		fs,
		stdout,
		&scan.Param{
			Org:          flags.Org,
			Repositories: flags.Repositories,
			OutputDir:    cmp.Or(flags.OutputDir, "gharisk-report"),
			Formats:      formats,
			FailOn:       opts.failOn,
			ResolveRefs:  flags.ResolveRefs,
		},
	)
	return ctrl.Scan(ctx, logE) //nolint:wrapcheck
}

// Inspect executes the inspect command.
func Inspect(ctx context.Context, logE *logrus.Entry, flags *InspectFlags, version string, stdout io.Writer) error {
	fs := afero.NewOsFs()
	deps, err := setup(logE, fs, flags.GlobalFlags)
	if err != nil {
		return err
	}
	opts, err := flags.parse()
	if err != nil {
		return err
	}
	format := report.FormatConsole
	if flags.Format != "" {
		f, err := report.ParseFormat(flags.Format)
		if err != nil {
			return fmt.Errorf("parse --format: %w", err)
		}
		format = f
	}
	var resolver inspect.RefResolver
	if flags.ResolveRefs {
		gh, err := github.New(ctx, logE, clientOptions(deps.env))
		if err != nil {
			return fmt.Errorf("create a GitHub client: %w", err)
		}
		resolver = github.NewRefResolver(logE, gh.Git, cmp.Or(deps.cfg.Workers, githubWorkers))
	}
	ctrl := inspect.New(fs, resolver, newEngine(deps.cfg),
		&report.Writer{Version: version, MinTier: opts.minTier, Top: flags.Top},
		stdout,
		&inspect.Param{
			WorkflowFilePaths: flags.Args,
			Repository:        cmp.Or(flags.Repository, deps.env.Repository),
			DefaultBranch:     flags.DefaultBranch,
			Format:            format,
			FailOn:            opts.failOn,
			ResolveRefs:       flags.ResolveRefs,
		})
	return ctrl.Inspect(ctx, logE) //nolint:wrapcheck
}

type dependencies struct {
	cfg *config.Config
	env *config.Env
}

func setup(logE *logrus.Entry, fs afero.Fs, gf *flag.GlobalFlags) (*dependencies, error) {
	if err := log.SetLevel(gf.LogLevel, logE); err != nil {
		return nil, fmt.Errorf("set log level: %w", err)
	}
	env, err := config.ReadEnv(nil)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if env.GitHubActions {
		color.NoColor = false
	}
	cfg, err := readConfig(fs, gf.Config)
	if err != nil {
		return nil, err
	}
	return &dependencies{cfg: cfg, env: env}, nil
}

func readConfig(fs afero.Fs, configFilePath string) (*config.Config, error) {
	cfgFinder := config.NewFinder(fs)
	cfgReader := config.NewReader(fs)
	configPath, err := cfgFinder.Find(configFilePath)
	if err != nil {
		return nil, fmt.Errorf("find configuration file: %w", err)
	}
	cfg := config.Default()
	if err := cfgReader.Read(cfg, configPath); err != nil {
		return nil, fmt.Errorf("read configuration file: %w", err)
	}
	return cfg, nil
}

func newEngine(cfg *config.Config) *engine.Engine {
	return engine.New(
		analyze.New(cfg.Policy()),
		risk.NewScorer(cfg.Weights, cfg.Tiers),
		cfg.Workers,
	).WithIgnorer(cfg.IgnoreActions)
}
