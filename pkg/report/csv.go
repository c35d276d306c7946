package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gharisk/gharisk/pkg/risk"
)

var csvHeader = []string{
	"repository", "workflow_path", "job_id", "step_index", "step_name", "line",
	"uses", "kind", "action", "version", "confident", "scored", "score", "tier",
	"pin_kind", "has_secret_access", "secrets", "permission_level", "permission_source",
	"privileged_runner", "production_trigger", "production_reasons", "third_party", "capabilities",
}

// WriteCSV writes a row per usage.
func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write a CSV header: %w", err)
	}
	for _, e := range r.Entries {
		for _, u := range e.Usages {
			if err := cw.Write(csvRow(e.Name(), u)); err != nil {
				return fmt.Errorf("write a CSV row: %w", err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush CSV: %w", err)
	}
	return nil
}

func csvRow(name string, u *risk.ScoredUsage) []string {
	s := u.Site
	ref := s.Reference
	row := []string{
		s.Repository, s.WorkflowPath, s.JobID, strconv.Itoa(s.StepIndex), s.StepName, strconv.Itoa(s.Line),
		ref.Raw, string(ref.Kind), name, ref.Version, strconv.FormatBool(s.Confident), strconv.FormatBool(u.Scored),
	}
	if u.Scored {
		row = append(row, strconv.Itoa(u.Score), string(u.Tier))
	} else {
		row = append(row, "", "")
	}
	f := u.Facts
	if f == nil {
		return append(row, make([]string, len(csvHeader)-len(row))...)
	}
	return append(row,
		string(f.PinKind),
		strconv.FormatBool(f.HasSecretAccess),
		strings.Join(f.Secrets, " "),
		string(f.PermissionLevel),
		string(f.PermissionSource),
		strconv.FormatBool(f.RunsOnPrivilegedRunner),
		strconv.FormatBool(f.IsProductionTrigger),
		strings.Join(f.ProductionReasons, " "),
		strconv.FormatBool(f.IsThirdParty),
		strings.Join(f.Capabilities, "; "),
	)
}
