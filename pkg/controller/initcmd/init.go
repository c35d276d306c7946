package initcmd

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
)

const (
	templateConfig = `# yaml-language-server: $schema=https://raw.githubusercontent.com/gharisk/gharisk/refs/heads/main/json-schema/gharisk.json
# gharisk - https://github.com/gharisk/gharisk
version: 1
# workers: 0 # 0 means the number of CPUs

# Contributions of each fact to the score. Scores are clamped to 0..100.
# weights:
#   unpinned_branch: 30
#   unpinned_tag: 15
#   pinned_sha: 0
#   secret_access: 20
#   secret_unpinned_bonus: 10
#   permission_none: 0
#   permission_read: 5
#   permission_write: 15
#   privileged_runner: 10
#   production_trigger: 10
#   third_party: 5

# The lowest scores of the tiers.
# tiers:
#   medium: 25
#   high: 50
#   critical: 75

# runners:
#   privileged_labels: [self-hosted]

# The default branch of each repository is always a production branch.
# production:
#   events: [push, release, deployment, deployment_status, workflow_dispatch, schedule]
#   branches: [main, master]
#   environments: [prod, prod-*, prod_*, production*, live]

# trusted_owners: [actions, github]

# capability_patterns:
#   terraform: infrastructure provisioning
#   root: "" # disable a default pattern

ignore_actions:
# - name: my-org/*
#   name_format: glob
# - name: actions/checkout
#   name_format: fixed_string
#   ref: ^v\d+$
#   ref_format: regexp
`
	filePermission os.FileMode = 0o644
)

// Init creates a configuration file with the default policy if it doesn't exist.
func (c *Controller) Init(configFilePath string) error {
	f, err := afero.Exists(c.fs, configFilePath)
	if err != nil {
		return fmt.Errorf("check if a configuration file exists: %w", err)
	}
	if f {
		return nil
	}
	if err := afero.WriteFile(c.fs, configFilePath, []byte(templateConfig), filePermission); err != nil {
		return fmt.Errorf("create a configuration file: %w", err)
	}
	return nil
}
