package workflow

import "github.com/gharisk/gharisk/pkg/action"

// Document is a parsed workflow file.
type Document struct {
	Repository string
	Path       string
	Name       string
	// DefaultBranch is the default branch of the repository if the collector knows it.
	DefaultBranch string
	Triggers      []*Trigger
	// Permissions is nil if the workflow doesn't declare permissions.
	Permissions *Permissions
	Env         []*Var
	Jobs        []*Job
	// Composite is true if the file is a composite action rather than a workflow.
	Composite   bool
	Diagnostics []Diagnostic
}

// Trigger is an event of the `on` key.
type Trigger struct {
	Event          string
	Line           int
	Types          []string
	Branches       []string
	BranchesIgnore []string
	Tags           []string
}

// Permissions is a `permissions` block.
// Shorthand is true if the block is a string such as `read-all`, whose raw
// value is All. Otherwise Scopes maps each permission name to its raw level token.
type Permissions struct {
	Line      int
	Shorthand bool
	All       string
	Scopes    []*Var
}

type Job struct {
	ID          string
	Name        string
	Line        int
	RunsOn      []string
	RunnerGroup string
	// Permissions is nil if the job doesn't override the workflow permissions.
	Permissions *Permissions
	Env         []*Var
	Environment string
	// Uses is set if the job calls a reusable workflow.
	Uses           string
	UsesLine       int
	Action         *action.Reference
	With           []*Var
	Secrets        []*Var
	SecretsInherit bool
	// Matrix holds the literal values of strategy.matrix.
	Matrix map[string][]string
	Steps  []*Step
}

type Step struct {
	Index    int
	ID       string
	Name     string
	Line     int
	Uses     string
	UsesLine int
	// Action is nil for steps running inline commands.
	Action *action.Reference
	Run    string
	With   []*Var
	Env    []*Var
	If     string
}

// Var is a name and a value of `env`, `with`, `secrets` and `permissions`.
// A whole block given as an expression is a Var with an empty name.
type Var struct {
	Name  string
	Value string
	Line  int
}

// Diagnostic is a non fatal finding about a document.
type Diagnostic struct {
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}
