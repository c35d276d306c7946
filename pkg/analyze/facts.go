// Package analyze computes the risk facts of action usage sites.
//
// Analysis is a total function of a site, its job and its document. Values
// the analyzer doesn't understand never cause an error: they are treated as
// the riskiest possible value and reported as a Diagnostic.
package analyze

import "github.com/gharisk/gharisk/pkg/action"

type PermissionLevel string

const (
	PermissionNone  PermissionLevel = "none"
	PermissionRead  PermissionLevel = "read"
	PermissionWrite PermissionLevel = "write"
)

func (l PermissionLevel) rank() int {
	switch l {
	case PermissionNone:
		return 0
	case PermissionRead:
		return 1
	default:
		return 2 //nolint:mnd
	}
}

// Max returns the higher of two levels.
func (l PermissionLevel) Max(other PermissionLevel) PermissionLevel {
	if other.rank() > l.rank() {
		return other
	}
	return l
}

// PermissionSource tells where the effective permissions come from.
type PermissionSource string

const (
	PermissionSourceJob      PermissionSource = "job"
	PermissionSourceWorkflow PermissionSource = "workflow"
	PermissionSourceAmbient  PermissionSource = "ambient"
)

// RiskFacts are the facts of a usage site which the risk scorer weighs.
type RiskFacts struct {
	HasSecretAccess bool `json:"has_secret_access"`
	// Secrets are the names of the reachable secrets. "*" means every secret.
	Secrets                []string         `json:"secrets,omitempty"`
	PermissionLevel        PermissionLevel  `json:"permission_level"`
	PermissionSource       PermissionSource `json:"permission_source"`
	RunsOnPrivilegedRunner bool             `json:"runs_on_privileged_runner"`
	IsProductionTrigger    bool             `json:"is_production_trigger"`
	// ProductionReasons are the triggers or environments which made the site production.
	ProductionReasons []string       `json:"production_reasons,omitempty"`
	IsThirdParty      bool           `json:"is_third_party"`
	PinKind           action.PinKind `json:"pin_kind,omitempty"`
	// Capabilities are hints about what the action can do, guessed from its
	// name and inputs. They are informational and aren't scored.
	Capabilities []string `json:"capabilities,omitempty"`
}

// Diagnostic is an anomaly found while analyzing a site.
type Diagnostic struct {
	Repository   string `json:"repository"`
	WorkflowPath string `json:"workflow_path"`
	JobID        string `json:"job_id,omitempty"`
	Line         int    `json:"line,omitempty"`
	Message      string `json:"message"`
}
