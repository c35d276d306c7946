package analyze

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Policy configures which runners, triggers and owners the analyzer
// treats as privileged, production or trusted.
// Patterns are matched case-insensitively with path.Match.
type Policy struct {
	PrivilegedRunnerLabels []string
	ProductionEvents       []string
	ProductionBranches     []string
	ProductionEnvironments []string
	TrustedOwners          []string
	// CapabilityPatterns maps a substring of an action name or its inputs
	// to the capability it hints at.
	CapabilityPatterns map[string]string
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		PrivilegedRunnerLabels: []string{"self-hosted"},
		ProductionEvents: []string{
			"push", "release", "deployment", "deployment_status", "workflow_dispatch", "schedule",
		},
		ProductionBranches:     []string{"main", "master"},
		ProductionEnvironments: []string{"prod", "prod-*", "prod_*", "production*", "live"},
		TrustedOwners:          []string{"actions", "github"},
		CapabilityPatterns: map[string]string{
			// privileged operations
			"docker":     "container manipulation",
			"kube":       "kubernetes api access",
			"admin":      "administrative access",
			"root":       "root permissions",
			"privileged": "explicitly privileged",
			"sudo":       "superuser execution",
			// file system access
			"checkout":  "source code access",
			"upload":    "file upload",
			"artifact":  "artifact manipulation",
			"cache":     "cache access",
			"file":      "file operations",
			"path":      "path manipulation",
			"dir":       "directory operations",
			"directory": "directory operations",
			// network access
			"download": "file download",
			"http":     "http requests",
			"curl":     "curl commands",
			"wget":     "wget downloads",
			"api":      "api access",
			"request":  "network requests",
			"fetch":    "data fetching",
			"deploy":   "deployment",
			"publish":  "publishing",
			// deprecation
			"deprecated": "deprecated",
			"legacy":     "deprecated",
		},
	}
}

// Validate checks that every pattern of the policy is well formed.
func (p Policy) Validate() error {
	lists := map[string][]string{
		"privileged_runner_labels": p.PrivilegedRunnerLabels,
		"production_branches":      p.ProductionBranches,
		"production_environments":  p.ProductionEnvironments,
	}
	for name, patterns := range lists {
		for _, pattern := range patterns {
			if pattern == "" {
				return fmt.Errorf("%s has an empty pattern", name)
			}
			if _, err := path.Match(pattern, ""); err != nil {
				return fmt.Errorf("%s has an invalid pattern %q: %w", name, pattern, err)
			}
		}
	}
	for _, event := range p.ProductionEvents {
		if event == "" {
			return errors.New("production_events has an empty event")
		}
	}
	return nil
}

// matchAny reports whether s matches any of patterns, ignoring case.
// Patterns are validated beforehand, so match errors are treated as no match.
func matchAny(patterns []string, s string) bool {
	s = strings.ToLower(s)
	for _, pattern := range patterns {
		if ok, err := path.Match(strings.ToLower(pattern), s); err == nil && ok {
			return true
		}
	}
	return false
}
