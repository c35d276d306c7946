// Package extract walks a parsed workflow and lists every action invocation.
package extract

import (
	"github.com/gharisk/gharisk/pkg/action"
	"github.com/gharisk/gharisk/pkg/workflow"
)

// UsageSite is one occurrence of an action reference in a job or a step.
type UsageSite struct {
	Repository   string `json:"repository"`
	WorkflowPath string `json:"workflow_path"`
	JobID        string `json:"job_id"`
	// StepIndex is -1 if the job itself calls a reusable workflow.
	StepIndex int               `json:"step_index"`
	StepName  string            `json:"step_name,omitempty"`
	Line      int               `json:"line,omitempty"`
	Reference *action.Reference `json:"reference"`
	// Confident is false if the reference couldn't be parsed.
	Confident bool `json:"confident"`

	job  *workflow.Job
	step *workflow.Step
}

// Job returns the job enclosing the site.
func (s *UsageSite) Job() *workflow.Job {
	return s.job
}

// Step returns the step of the site. It returns nil for job level calls.
func (s *UsageSite) Step() *workflow.Step {
	return s.step
}

// Identity returns the inventory key of the site.
func (s *UsageSite) Identity() action.Identity {
	return s.Reference.Identity(s.Repository)
}

// Extract returns the usage sites of a document in job order and then step order.
// Steps running inline commands are skipped. Unparseable references are kept
// with the malformed kind so that one bad step never drops the others.
func Extract(doc *workflow.Document) []*UsageSite {
	var sites []*UsageSite
	for _, job := range doc.Jobs {
		if job.Action != nil {
			sites = append(sites, newSite(doc, job, nil, job.Action, job.UsesLine))
		}
		for _, step := range job.Steps {
			if step.Action == nil {
				continue
			}
			sites = append(sites, newSite(doc, job, step, step.Action, step.UsesLine))
		}
	}
	return sites
}

func newSite(doc *workflow.Document, job *workflow.Job, step *workflow.Step, ref *action.Reference, line int) *UsageSite {
	// A copy is taken because the pin kind is a fact of the site.
	r := *ref
	site := &UsageSite{
		Repository:   doc.Repository,
		WorkflowPath: doc.Path,
		JobID:        job.ID,
		StepIndex:    -1,
		Line:         line,
		Reference:    &r,
		Confident:    r.Kind != action.KindMalformed,
		job:          job,
		step:         step,
	}
	if step != nil {
		site.StepIndex = step.Index
		site.StepName = step.Name
	}
	return site
}
