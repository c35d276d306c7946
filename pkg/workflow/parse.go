// Package workflow parses GitHub Actions workflow files.
// A file is first parsed into a schema-less tree of Nodes, then projected
// into the fixed Document, Job and Step shape. Keys outside the recognized
// schema are reported as diagnostics instead of being dropped silently.
// Parsing is pure; it never fetches anything.
package workflow

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gharisk/gharisk/pkg/action"
	"github.com/goccy/go-yaml/parser"
)

var (
	// ErrMalformedWorkflow is returned if a file isn't valid YAML or isn't a mapping.
	ErrMalformedWorkflow = errors.New("malformed workflow")
	// ErrUnsupportedSchema is returned if a file is valid YAML but lacks
	// required keys such as `jobs` or has them in an unexpected shape.
	ErrUnsupportedSchema = errors.New("unsupported workflow schema")
)

// ParseError is a failure to parse one document.
// errors.Is reports a match with ErrMalformedWorkflow or ErrUnsupportedSchema.
// The message omits the location, which callers report alongside it.
type ParseError struct {
	Repository string
	Path       string
	Kind       error
	Err        error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

var (
	topLevelKeys = keySet("name", "run-name", "on", "permissions", "env", "defaults", "concurrency", "jobs")
	jobKeys      = keySet(
		"name", "permissions", "needs", "if", "runs-on", "environment", "concurrency", "outputs",
		"env", "defaults", "steps", "timeout-minutes", "strategy", "continue-on-error", "container",
		"services", "uses", "with", "secrets", "snapshot",
	)
	stepKeys = keySet(
		"id", "if", "name", "uses", "run", "working-directory", "shell", "with", "env",
		"continue-on-error", "timeout-minutes",
	)
	compositeKeys = keySet("name", "author", "description", "inputs", "outputs", "runs", "branding")
)

func keySet(keys ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}

// Parse parses a workflow file of a repository.
func Parse(repository, path string, raw []byte) (*Document, error) {
	root, err := parseTree(raw)
	if err != nil {
		return nil, &ParseError{Repository: repository, Path: path, Kind: ErrMalformedWorkflow, Err: err}
	}
	p := &projector{doc: &Document{Repository: repository, Path: path}}
	if err := p.project(root); err != nil {
		return nil, &ParseError{Repository: repository, Path: path, Kind: ErrUnsupportedSchema, Err: err}
	}
	return p.doc, nil
}

func parseTree(raw []byte) (*Node, error) {
	file, err := parser.ParseBytes(raw, 0)
	if err != nil {
		return nil, fmt.Errorf("parse a workflow file as YAML: %w", err)
	}
	if len(file.Docs) == 0 || file.Docs[0] == nil || file.Docs[0].Body == nil {
		return nil, errors.New("workflow file is empty")
	}
	root := newConverter().convert(file.Docs[0].Body)
	if root.Kind != NodeMapping {
		return nil, errors.New("workflow file must be a mapping")
	}
	return root, nil
}

type projector struct {
	doc *Document
}

func (p *projector) diagnose(line int, format string, a ...any) {
	p.doc.Diagnostics = append(p.doc.Diagnostics, Diagnostic{Line: line, Message: fmt.Sprintf(format, a...)})
}

func (p *projector) checkKeys(n *Node, known map[string]struct{}, where string) {
	for _, pair := range n.Pairs {
		if _, ok := known[pair.Key]; !ok {
			p.diagnose(pair.Line, "unknown key %q in %s", pair.Key, where)
		}
	}
}

func (p *projector) project(root *Node) error {
	jobs := root.Get("jobs")
	if jobs == nil {
		if runs := root.Get("runs"); runs != nil && runs.Get("using").Scalar() == "composite" {
			return p.projectComposite(root, runs)
		}
		return errors.New("jobs is required")
	}
	if jobs.Kind != NodeMapping {
		return errors.New("jobs must be a mapping")
	}
	p.checkKeys(root, topLevelKeys, "workflow")
	p.doc.Name = root.Get("name").Scalar()
	p.doc.Triggers = p.triggers(root.Get("on"))
	p.doc.Permissions = p.permissions(root.Get("permissions"))
	p.doc.Env = vars(root.Get("env"))
	for _, pair := range jobs.Pairs {
		job, err := p.job(pair)
		if err != nil {
			return fmt.Errorf("job %s: %w", pair.Key, err)
		}
		p.doc.Jobs = append(p.doc.Jobs, job)
	}
	return nil
}

func (p *projector) projectComposite(root, runs *Node) error {
	p.checkKeys(root, compositeKeys, "composite action")
	p.doc.Composite = true
	p.doc.Name = root.Get("name").Scalar()
	job := &Job{ID: "composite", Line: runs.Line}
	steps, err := p.steps(runs.Get("steps"))
	if err != nil {
		return err
	}
	job.Steps = steps
	p.doc.Jobs = []*Job{job}
	return nil
}

func (p *projector) triggers(n *Node) []*Trigger {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case NodeScalar:
		return []*Trigger{{Event: n.Value, Line: n.Line}}
	case NodeSequence:
		arr := make([]*Trigger, 0, len(n.Items))
		for _, item := range n.Items {
			if item.Kind != NodeScalar {
				p.diagnose(item.Line, "trigger must be a string")
				continue
			}
			arr = append(arr, &Trigger{Event: item.Value, Line: item.Line})
		}
		return arr
	case NodeMapping:
		arr := make([]*Trigger, 0, len(n.Pairs))
		for _, pair := range n.Pairs {
			arr = append(arr, &Trigger{
				Event:          pair.Key,
				Line:           pair.Line,
				Types:          pair.Value.Get("types").Strings(),
				Branches:       pair.Value.Get("branches").Strings(),
				BranchesIgnore: pair.Value.Get("branches-ignore").Strings(),
				Tags:           pair.Value.Get("tags").Strings(),
			})
		}
		return arr
	default:
		return nil
	}
}

func (p *projector) permissions(n *Node) *Permissions {
	if n == nil {
		return nil
	}
	perm := &Permissions{Line: n.Line}
	switch n.Kind {
	case NodeScalar:
		perm.Shorthand = true
		perm.All = n.Value
	case NodeMapping:
		perm.Scopes = vars(n)
	case NodeNull:
		// `permissions:` with no value is the same as `permissions: {}`.
	default:
		p.diagnose(n.Line, "permissions must be a string or a mapping")
		perm.Shorthand = true
		perm.All = n.Text()
	}
	return perm
}

// vars converts an env-like mapping. A block given as an expression string
// becomes a single Var with an empty name.
func vars(n *Node) []*Var {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case NodeMapping:
		arr := make([]*Var, 0, len(n.Pairs))
		for _, pair := range n.Pairs {
			arr = append(arr, &Var{Name: pair.Key, Value: pair.Value.Text(), Line: pair.Line})
		}
		return arr
	case NodeScalar, NodeSequence:
		return []*Var{{Value: n.Text(), Line: n.Line}}
	default:
		return nil
	}
}

func (p *projector) job(pair *Pair) (*Job, error) { //nolint:cyclop
	n := pair.Value
	if n.Kind != NodeMapping {
		return nil, errors.New("job must be a mapping")
	}
	p.checkKeys(n, jobKeys, "job "+pair.Key)
	job := &Job{
		ID:          pair.Key,
		Name:        n.Get("name").Scalar(),
		Line:        pair.Line,
		Permissions: p.permissions(n.Get("permissions")),
		Env:         vars(n.Get("env")),
		With:        vars(n.Get("with")),
		Matrix:      matrix(n.Get("strategy").Get("matrix")),
	}
	if runsOn := n.Get("runs-on"); runsOn != nil {
		switch runsOn.Kind {
		case NodeMapping:
			job.RunnerGroup = runsOn.Get("group").Scalar()
			job.RunsOn = runsOn.Get("labels").Strings()
		default:
			job.RunsOn = runsOn.Strings()
		}
	}
	if env := n.Get("environment"); env != nil {
		if env.Kind == NodeMapping {
			job.Environment = env.Get("name").Scalar()
		} else {
			job.Environment = env.Scalar()
		}
	}
	if secrets := n.Get("secrets"); secrets != nil {
		if secrets.Kind == NodeScalar && secrets.Value == "inherit" {
			job.SecretsInherit = true
		} else {
			job.Secrets = vars(secrets)
		}
	}
	if uses := n.Get("uses"); uses != nil {
		job.Uses = uses.Scalar()
		job.UsesLine = uses.Line
		job.Action = action.Parse(job.Uses)
		if uses.Kind != NodeScalar {
			p.diagnose(uses.Line, "uses of job %s must be a string", pair.Key)
		}
	}
	steps, err := p.steps(n.Get("steps"))
	if err != nil {
		return nil, err
	}
	job.Steps = steps
	if !n.Has("uses") && !n.Has("steps") {
		p.diagnose(pair.Line, "job %s has neither steps nor uses", pair.Key)
	}
	return job, nil
}

func matrix(n *Node) map[string][]string {
	if n == nil || n.Kind != NodeMapping {
		return nil
	}
	m := map[string][]string{}
	for _, pair := range n.Pairs {
		if pair.Key == "exclude" || pair.Value.Kind != NodeSequence {
			continue
		}
		if pair.Key == "include" {
			// include entries add combinations, so their values are possible too.
			for _, item := range pair.Value.Items {
				for _, p := range item.Pairs {
					if p.Value.Kind == NodeScalar {
						m[p.Key] = append(m[p.Key], p.Value.Value)
					}
				}
			}
			continue
		}
		if values := pair.Value.Strings(); len(values) > 0 {
			m[pair.Key] = append(m[pair.Key], values...)
		}
	}
	return m
}

func (p *projector) steps(n *Node) ([]*Step, error) {
	if n == nil || n.Kind == NodeNull {
		return nil, nil
	}
	if n.Kind != NodeSequence {
		return nil, errors.New("steps must be a sequence")
	}
	steps := make([]*Step, 0, len(n.Items))
	for i, item := range n.Items {
		if item.Kind != NodeMapping {
			return nil, errors.New("step " + strconv.Itoa(i+1) + " must be a mapping")
		}
		p.checkKeys(item, stepKeys, "step "+strconv.Itoa(i+1))
		step := &Step{
			Index: i,
			ID:    item.Get("id").Scalar(),
			Name:  item.Get("name").Scalar(),
			Line:  item.Line,
			Run:   item.Get("run").Scalar(),
			With:  vars(item.Get("with")),
			Env:   vars(item.Get("env")),
			If:    item.Get("if").Scalar(),
		}
		if uses := item.Get("uses"); uses != nil {
			step.Uses = uses.Scalar()
			step.UsesLine = uses.Line
			step.Action = action.Parse(step.Uses)
		}
		steps = append(steps, step)
	}
	return steps, nil
}
