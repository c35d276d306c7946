package config

import (
	"errors"
	"fmt"
	"path"
	"regexp"

	"github.com/gharisk/gharisk/pkg/action"
	"github.com/gharisk/gharisk/pkg/analyze"
	"github.com/gharisk/gharisk/pkg/risk"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Version is the only supported schema version of the configuration file.
const Version = 1

type Config struct {
	Version            int               `json:"version" jsonschema:"enum=1"`
	Workers            int               `json:"workers,omitempty" jsonschema:"description=The number of workflow files processed in parallel. 0 means the number of CPUs"`
	Weights            risk.Weights      `json:"weights" jsonschema:"description=Contributions of each risk fact to the score"`
	Tiers              risk.Tiers        `json:"tiers" jsonschema:"description=The lowest scores of the tiers medium, high and critical"`
	Runners            Runners           `json:"runners"`
	Production         Production        `json:"production"`
	TrustedOwners      []string          `json:"trusted_owners,omitempty" yaml:"trusted_owners" jsonschema:"description=Owners whose actions aren't third party"`
	CapabilityPatterns map[string]string `json:"capability_patterns,omitempty" yaml:"capability_patterns" jsonschema:"description=Substrings of action names and inputs mapped to the capability they hint at. An empty capability disables a default pattern"`
	IgnoreActions      IgnoreActions     `json:"ignore_actions,omitempty" yaml:"ignore_actions" jsonschema:"description=Actions and reusable workflows that gharisk excludes from the inventory"`
}

type Runners struct {
	PrivilegedLabels []string `json:"privileged_labels" yaml:"privileged_labels" jsonschema:"description=Glob patterns of runner labels and groups treated as privileged"`
}

type Production struct {
	Events       []string `json:"events" jsonschema:"description=Events treated as production triggers"`
	Branches     []string `json:"branches" jsonschema:"description=Glob patterns of production branches. The default branch of a repository is always a production branch"`
	Environments []string `json:"environments" jsonschema:"description=Glob patterns of production deployment environments"`
}

// Default returns the configuration used when no configuration file is found.
func Default() *Config {
	p := analyze.DefaultPolicy()
	return &Config{
		Version: Version,
		Weights: risk.DefaultWeights(),
		Tiers:   risk.DefaultTiers(),
		Runners: Runners{
			PrivilegedLabels: p.PrivilegedRunnerLabels,
		},
		Production: Production{
			Events:       p.ProductionEvents,
			Branches:     p.ProductionBranches,
			Environments: p.ProductionEnvironments,
		},
		TrustedOwners:      p.TrustedOwners,
		CapabilityPatterns: p.CapabilityPatterns,
	}
}

// Policy returns the analysis policy of the configuration.
func (c *Config) Policy() analyze.Policy {
	patterns := make(map[string]string, len(c.CapabilityPatterns))
	for k, v := range c.CapabilityPatterns {
		if k != "" && v != "" {
			patterns[k] = v
		}
	}
	return analyze.Policy{
		PrivilegedRunnerLabels: c.Runners.PrivilegedLabels,
		ProductionEvents:       c.Production.Events,
		ProductionBranches:     c.Production.Branches,
		ProductionEnvironments: c.Production.Environments,
		TrustedOwners:          c.TrustedOwners,
		CapabilityPatterns:     patterns,
	}
}

// Init validates the configuration and compiles the patterns of ignore_actions.
func (c *Config) Init() error {
	if err := validateSchemaVersion(c.Version); err != nil {
		return err
	}
	if c.Workers < 0 {
		return errors.New("workers must not be negative")
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("validate weights: %w", err)
	}
	if err := c.Tiers.Validate(); err != nil {
		return fmt.Errorf("validate tiers: %w", err)
	}
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("validate policy: %w", err)
	}
	for _, ia := range c.IgnoreActions {
		if err := ia.Init(); err != nil {
			return fmt.Errorf("initialize ignore_action: %w", err)
		}
	}
	return nil
}

func validateSchemaVersion(v int) error {
	switch v {
	case 0:
		return errors.New("schema version is required")
	case Version:
		return nil
	default:
		return fmt.Errorf("unsupported schema version: %d", v)
	}
}

const (
	formatFixedString = "fixed_string"
	formatGlob        = "glob"
	formatRegexp      = "regexp"
)

type IgnoreAction struct {
	Name       string `json:"name" jsonschema:"description=The name of an action such as actions/checkout, docker://alpine or ./.github/actions/setup"`
	Ref        string `json:"ref,omitempty" jsonschema:"description=The version of the action"`
	NameFormat string `json:"name_format" yaml:"name_format" jsonschema:"enum=fixed_string,enum=glob,enum=regexp"`
	RefFormat  string `json:"ref_format,omitempty" yaml:"ref_format" jsonschema:"enum=fixed_string,enum=glob,enum=regexp"`
	nameRegexp *regexp.Regexp
	refRegexp  *regexp.Regexp
}

func initFormat(value, format string) (*regexp.Regexp, error) {
	switch format {
	case formatFixedString:
		return nil, nil //nolint:nilnil
	case formatGlob:
		if _, err := path.Match(value, "a"); err != nil {
			return nil, fmt.Errorf("parse as a glob: %w", err)
		}
		return nil, nil //nolint:nilnil
	case formatRegexp:
		r, err := regexp.Compile(value)
		if err != nil {
			return nil, fmt.Errorf("compile as a regular expression: %w", err)
		}
		return r, nil
	default:
		return nil, errors.New("format must be fixed_string, glob, or regexp")
	}
}

func (ia *IgnoreAction) initName() error {
	if ia.Name == "" {
		return errors.New("name is required")
	}
	if ia.NameFormat == "" {
		return errors.New("name_format is required")
	}
	var err error
	ia.nameRegexp, err = initFormat(ia.Name, ia.NameFormat)
	return err
}

func (ia *IgnoreAction) initRef() error {
	if ia.Ref == "" {
		return nil
	}
	if ia.RefFormat == "" {
		return errors.New("ref_format is required if ref is specified")
	}
	var err error
	ia.refRegexp, err = initFormat(ia.Ref, ia.RefFormat)
	return err
}

func (ia *IgnoreAction) Init() error {
	if err := ia.initName(); err != nil {
		return err
	}
	return ia.initRef()
}

func match(value, pattern, format string, r *regexp.Regexp) (bool, error) {
	switch format {
	case formatFixedString:
		return value == pattern, nil
	case formatGlob:
		f, err := path.Match(pattern, value)
		if err != nil {
			return false, fmt.Errorf("match as a glob: %w", err)
		}
		return f, nil
	case formatRegexp:
		return r.MatchString(value), nil
	default:
		return false, errors.New("unexpected format: " + format)
	}
}

// Match reports whether an action of the name and ref is ignored.
// Init must be called beforehand.
func (ia *IgnoreAction) Match(name, ref string) (bool, error) {
	f, err := match(name, ia.Name, ia.NameFormat, ia.nameRegexp)
	if err != nil {
		return false, fmt.Errorf("match name: %w", err)
	}
	if !f || ia.Ref == "" {
		return f, nil
	}
	f, err = match(ref, ia.Ref, ia.RefFormat, ia.refRegexp)
	if err != nil {
		return false, fmt.Errorf("match ref: %w", err)
	}
	return f, nil
}

type IgnoreActions []*IgnoreAction

// Ignore reports whether any entry matches the reference.
// Patterns are validated by Init, so a match error counts as no match.
func (ias IgnoreActions) Ignore(ref *action.Reference) bool {
	for _, ia := range ias {
		if f, err := ia.Match(ref.Name(), ref.Version); err == nil && f {
			return true
		}
	}
	return false
}

func getConfigPath(fs afero.Fs) (string, error) {
	for _, path := range []string{".gharisk.yaml", ".github/gharisk.yaml", ".gharisk.yml", ".github/gharisk.yml"} {
		f, err := afero.Exists(fs, path)
		if err != nil {
			return "", fmt.Errorf("check if %s exists: %w", path, err)
		}
		if f {
			return path, nil
		}
	}
	return "", nil
}

type Finder struct {
	fs afero.Fs
}

func NewFinder(fs afero.Fs) *Finder {
	return &Finder{fs: fs}
}

// Find returns configFilePath if it isn't empty, or else the first
// configuration file found in the working directory.
// An empty path is returned if there is no configuration file.
func (f *Finder) Find(configFilePath string) (string, error) {
	if configFilePath != "" {
		return configFilePath, nil
	}
	return getConfigPath(f.fs)
}

type Reader struct {
	fs afero.Fs
}

func NewReader(fs afero.Fs) *Reader {
	return &Reader{fs: fs}
}

// Read decodes a configuration file over cfg and initializes it.
// Keys which aren't in the file keep the values of cfg.
// If configFilePath is empty, cfg is only initialized.
func (r *Reader) Read(cfg *Config, configFilePath string) error {
	if configFilePath != "" {
		if err := r.decode(cfg, configFilePath); err != nil {
			return err
		}
	}
	if err := cfg.Init(); err != nil {
		return fmt.Errorf("initialize a configuration: %w", err)
	}
	return nil
}

func (r *Reader) decode(cfg *Config, configFilePath string) error {
	f, err := r.fs.Open(configFilePath)
	if err != nil {
		return fmt.Errorf("open a configuration file: %w", err)
	}
	defer f.Close()
	// the version must be declared by the file
	cfg.Version = 0
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("decode a configuration file as YAML: %w", err)
	}
	return nil
}
