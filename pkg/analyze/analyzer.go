package analyze

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/gharisk/gharisk/pkg/action"
	"github.com/gharisk/gharisk/pkg/extract"
	"github.com/gharisk/gharisk/pkg/workflow"
	"github.com/samber/lo"
)

type Analyzer struct {
	policy Policy
}

func New(policy Policy) *Analyzer {
	return &Analyzer{policy: policy}
}

// Analyze computes the risk facts of a site and resolves its pin kind.
// refs may be nil.
func (a *Analyzer) Analyze(site *extract.UsageSite, doc *workflow.Document, refs action.RefLookup) (*RiskFacts, []Diagnostic) {
	an := &analysis{
		policy: a.policy,
		site:   site,
		job:    site.Job(),
		doc:    doc,
	}
	return an.run(refs), an.diagnostics
}

type analysis struct {
	policy      Policy
	site        *extract.UsageSite
	job         *workflow.Job
	doc         *workflow.Document
	diagnostics []Diagnostic
}

func (an *analysis) diagnose(line int, format string, a ...any) {
	d := Diagnostic{
		Repository:   an.doc.Repository,
		WorkflowPath: an.doc.Path,
		Line:         line,
		Message:      fmt.Sprintf(format, a...),
	}
	if an.job != nil {
		d.JobID = an.job.ID
	}
	an.diagnostics = append(an.diagnostics, d)
}

func (an *analysis) run(refs action.RefLookup) *RiskFacts {
	facts := &RiskFacts{
		PinKind:      an.site.Reference.ResolvePinKind(refs),
		IsThirdParty: an.thirdParty(),
		Capabilities: an.capabilities(),
	}
	facts.PermissionLevel, facts.PermissionSource = an.permissionLevel()
	facts.Secrets = an.secrets()
	facts.HasSecretAccess = len(facts.Secrets) > 0
	facts.RunsOnPrivilegedRunner = an.privilegedRunner()
	facts.ProductionReasons = an.productionReasons()
	facts.IsProductionTrigger = len(facts.ProductionReasons) > 0
	return facts
}

func (an *analysis) thirdParty() bool {
	ref := an.site.Reference
	switch ref.Kind {
	case action.KindDocker:
		return true
	case action.KindAction, action.KindReusableWorkflow:
		if ref.Owner == "" {
			return false
		}
		return !slices.ContainsFunc(an.policy.TrustedOwners, func(owner string) bool {
			return strings.EqualFold(owner, ref.Owner)
		})
	default:
		return false
	}
}

func (an *analysis) capabilities() []string {
	targets := []string{strings.ToLower(an.site.Reference.Name())}
	if step := an.site.Step(); step != nil {
		for _, v := range step.With {
			targets = append(targets, strings.ToLower(v.Value))
		}
	}
	var caps []string
	for pattern, capability := range an.policy.CapabilityPatterns {
		pattern = strings.ToLower(pattern)
		if slices.ContainsFunc(targets, func(s string) bool { return strings.Contains(s, pattern) }) {
			caps = append(caps, capability)
		}
	}
	slices.Sort(caps)
	return slices.Compact(caps)
}

// permissionLevel returns the highest level granted to the GITHUB_TOKEN of the job.
// Job permissions replace workflow permissions. If neither is declared, the
// ambient default is assumed to be write.
func (an *analysis) permissionLevel() (PermissionLevel, PermissionSource) {
	if an.job != nil && an.job.Permissions != nil {
		return an.levelOf(an.job.Permissions), PermissionSourceJob
	}
	if an.doc.Permissions != nil {
		return an.levelOf(an.doc.Permissions), PermissionSourceWorkflow
	}
	return PermissionWrite, PermissionSourceAmbient
}

func (an *analysis) levelOf(perm *workflow.Permissions) PermissionLevel {
	if perm.Shorthand {
		switch perm.All {
		case "read-all":
			return PermissionRead
		case "write-all":
			return PermissionWrite
		default:
			an.diagnose(perm.Line, "unknown permissions %q is treated as write", perm.All)
			return PermissionWrite
		}
	}
	level := PermissionNone
	for _, scope := range perm.Scopes {
		switch l := PermissionLevel(scope.Value); l {
		case PermissionNone, PermissionRead, PermissionWrite:
			level = level.Max(l)
		default:
			an.diagnose(scope.Line, "unknown permission level %q of %s is treated as write", scope.Value, scope.Name)
			level = PermissionWrite
		}
	}
	return level
}

var (
	expressionPattern  = regexp.MustCompile(`\$\{\{(.*?)\}\}`)
	secretPattern      = regexp.MustCompile(`(?i)\bsecrets\b(?:\.([A-Za-z0-9_-]+)|\[\s*'([^']+)'\s*\]|\[\s*"([^"]+)"\s*\])?`)
	githubTokenPattern = regexp.MustCompile(`(?i)\bgithub\.token\b`)
)

// AllSecrets is the secret name used when every secret is reachable.
const AllSecrets = "*"

// SecretRefs returns the secret names interpolated in s.
// A reference to the whole secrets context, such as toJSON(secrets), yields AllSecrets.
func SecretRefs(s string) []string {
	var names []string
	for _, expr := range expressionPattern.FindAllStringSubmatch(s, -1) {
		for _, m := range secretPattern.FindAllStringSubmatch(expr[1], -1) {
			name := lo.Ternary(m[1] != "", m[1], lo.Ternary(m[2] != "", m[2], m[3]))
			names = append(names, lo.Ternary(name == "", AllSecrets, name))
		}
		if githubTokenPattern.MatchString(expr[1]) {
			names = append(names, "GITHUB_TOKEN")
		}
	}
	return names
}

// secrets returns the sorted secret names reachable by the site through
// step inputs and the env blocks of the step, the job and the workflow.
func (an *analysis) secrets() []string {
	var blocks [][]*workflow.Var
	if step := an.site.Step(); step != nil {
		blocks = append(blocks, step.With, step.Env)
	}
	if an.job != nil {
		blocks = append(blocks, an.job.Env)
		if an.site.StepIndex == -1 {
			blocks = append(blocks, an.job.With)
		}
	}
	blocks = append(blocks, an.doc.Env)
	var names []string
	for _, vars := range blocks {
		for _, v := range vars {
			names = append(names, SecretRefs(v.Value)...)
		}
	}
	if an.job != nil && an.site.StepIndex == -1 {
		// secrets passed to a reusable workflow
		if an.job.SecretsInherit {
			names = append(names, AllSecrets)
		}
		for _, v := range an.job.Secrets {
			refs := SecretRefs(v.Value)
			if len(refs) == 0 && v.Name != "" {
				refs = []string{v.Name}
			}
			names = append(names, refs...)
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}

var matrixRunnerPattern = regexp.MustCompile(`^\$\{\{\s*matrix\.([A-Za-z0-9_-]+)\s*\}\}$`)

// privilegedRunner returns true if any label of the job's runner matches the
// privileged labels. Labels given by a matrix are resolved against the literal
// matrix values. Other expressions can't be resolved and count as privileged.
func (an *analysis) privilegedRunner() bool {
	if an.job == nil {
		return false
	}
	if an.job.RunnerGroup != "" && matchAny(an.policy.PrivilegedRunnerLabels, an.job.RunnerGroup) {
		return true
	}
	for _, label := range an.job.RunsOn {
		if !strings.Contains(label, "${{") {
			if matchAny(an.policy.PrivilegedRunnerLabels, label) {
				return true
			}
			continue
		}
		m := matrixRunnerPattern.FindStringSubmatch(label)
		if m == nil {
			an.diagnose(an.job.Line, "runner %q can't be resolved and is treated as privileged", label)
			return true
		}
		values, ok := an.job.Matrix[m[1]]
		if !ok {
			an.diagnose(an.job.Line, "matrix.%s of the runner isn't a literal list and is treated as privileged", m[1])
			return true
		}
		if slices.ContainsFunc(values, func(v string) bool {
			return strings.Contains(v, "${{") || matchAny(an.policy.PrivilegedRunnerLabels, v)
		}) {
			return true
		}
	}
	return false
}

// productionReasons returns the triggers and the environment which make the
// site production affecting.
func (an *analysis) productionReasons() []string {
	var reasons []string
	for _, tr := range an.doc.Triggers {
		if !slices.Contains(an.policy.ProductionEvents, tr.Event) {
			continue
		}
		if tr.Event == "push" && !an.pushesProduction(tr) {
			continue
		}
		reasons = append(reasons, "on:"+tr.Event)
	}
	if an.job != nil && an.job.Environment != "" {
		if strings.Contains(an.job.Environment, "${{") || matchAny(an.policy.ProductionEnvironments, an.job.Environment) {
			reasons = append(reasons, "environment:"+an.job.Environment)
		}
	}
	return reasons
}

// pushesProduction returns true if a push trigger can run for a production branch.
// A push without branch filters runs for every branch.
func (an *analysis) pushesProduction(tr *workflow.Trigger) bool {
	branches := an.policy.ProductionBranches
	if an.doc.DefaultBranch != "" {
		branches = append(slices.Clip(branches), an.doc.DefaultBranch)
	}
	if len(tr.Branches) == 0 && len(tr.BranchesIgnore) == 0 {
		return true
	}
	if len(tr.Branches) > 0 {
		return slices.ContainsFunc(tr.Branches, func(filter string) bool {
			return branchFilterMatches(filter, branches)
		})
	}
	return slices.ContainsFunc(branches, func(branch string) bool {
		return !slices.ContainsFunc(tr.BranchesIgnore, func(filter string) bool {
			return branchFilterMatches(filter, []string{branch})
		})
	})
}

// branchFilterMatches reports whether a workflow branch filter and any of the
// production branch patterns can select the same branch.
func branchFilterMatches(filter string, branches []string) bool {
	filter = strings.ReplaceAll(filter, "**", "*")
	for _, branch := range branches {
		if matchAny([]string{filter}, branch) || matchAny([]string{branch}, filter) {
			return true
		}
	}
	return false
}
