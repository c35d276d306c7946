// Package action models the canonical identity of an action reference.
// A reference is parsed from the value of a `uses` key. Parsing never fails:
// references that can't be understood are tagged with KindMalformed so the
// rest of the workflow's inventory survives.
package action

import (
	"regexp"
	"strings"
)

type Kind string

const (
	KindAction           Kind = "action"
	KindDocker           Kind = "docker"
	KindLocal            Kind = "local"
	KindReusableWorkflow Kind = "reusable-workflow"
	KindMalformed        Kind = "malformed"
)

// Scored returns true if references of the kind take part in third-party risk scoring.
func (k Kind) Scored() bool {
	return k == KindAction || k == KindDocker
}

// Reference is a parsed `uses` value.
// Version and PinKind are facts of the usage site, not of the identity.
type Reference struct {
	Kind    Kind    `json:"kind"`
	Raw     string  `json:"raw"`
	Owner   string  `json:"owner,omitempty"`
	Repo    string  `json:"repo,omitempty"`
	Path    string  `json:"path,omitempty"`
	Version string  `json:"version,omitempty"`
	PinKind PinKind `json:"pin_kind,omitempty"`
	// Reason explains why a reference is malformed.
	Reason string `json:"reason,omitempty"`
}

var (
	ownerPattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?$`)
	repoPattern  = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	reusablePath = regexp.MustCompile(`^\.github/workflows/[^/]+\.ya?ml$`)
)

// Parse parses a `uses` value.
// Supported forms are
//
//	owner/repo@ref
//	owner/repo/path@ref
//	owner/repo/.github/workflows/file.yaml@ref
//	./path/to/action
//	docker://image:tag
func Parse(uses string) *Reference {
	raw := strings.TrimSpace(uses)
	ref := &Reference{Raw: raw}
	switch {
	case raw == "":
		return ref.malformed("empty reference")
	case strings.HasPrefix(raw, "./") || strings.HasPrefix(raw, "../"):
		ref.Kind = KindLocal
		ref.Path = raw
		if reusablePath.MatchString(strings.TrimPrefix(raw, "./")) {
			ref.Kind = KindReusableWorkflow
		}
		return ref
	case strings.HasPrefix(raw, "docker://"):
		return parseDocker(ref)
	}

	name, version, found := strings.Cut(raw, "@")
	if !found {
		return ref.malformed("version is missing")
	}
	if version == "" || strings.ContainsAny(version, " @") {
		return ref.malformed("version is invalid")
	}
	a := strings.Split(name, "/")
	if len(a) < 2 { //nolint:mnd
		return ref.malformed("owner/repo is required")
	}
	if !ownerPattern.MatchString(a[0]) || !repoPattern.MatchString(a[1]) {
		return ref.malformed("owner or repository name is invalid")
	}
	ref.Owner = a[0]
	ref.Repo = a[1]
	ref.Version = version
	ref.Kind = KindAction
	if len(a) > 2 { //nolint:mnd
		for _, seg := range a[2:] {
			if seg == "" {
				return ref.malformed("path has an empty segment")
			}
		}
		ref.Path = strings.Join(a[2:], "/")
		if reusablePath.MatchString(ref.Path) {
			ref.Kind = KindReusableWorkflow
		}
	}
	return ref
}

func (r *Reference) malformed(reason string) *Reference {
	r.Kind = KindMalformed
	r.Reason = reason
	return r
}

func parseDocker(ref *Reference) *Reference {
	image := strings.TrimPrefix(ref.Raw, "docker://")
	if image == "" {
		return ref.malformed("docker image is empty")
	}
	ref.Kind = KindDocker
	if name, digest, ok := strings.Cut(image, "@"); ok {
		ref.Repo = name
		ref.Version = digest
		return ref
	}
	// The tag separator is the last colon after the last slash; an earlier
	// colon belongs to a registry port.
	slash := strings.LastIndex(image, "/")
	if colon := strings.LastIndex(image, ":"); colon > slash {
		ref.Repo = image[:colon]
		ref.Version = image[colon+1:]
		return ref
	}
	ref.Repo = image
	return ref
}

// Name returns owner/repo[/path] for remote references and the raw path otherwise.
func (r *Reference) Name() string {
	switch r.Kind {
	case KindAction, KindReusableWorkflow:
		if r.Owner == "" {
			return r.Path
		}
		if r.Path == "" {
			return r.Owner + "/" + r.Repo
		}
		return r.Owner + "/" + r.Repo + "/" + r.Path
	case KindDocker:
		return "docker://" + r.Repo
	case KindLocal:
		return r.Path
	default:
		return r.Raw
	}
}
