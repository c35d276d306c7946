package action

import "strings"

// Identity is the inventory key of a reference.
// Two references are the same action iff their identities are equal;
// the version specifier is never part of it.
type Identity struct {
	Kind  Kind   `json:"kind"`
	Owner string `json:"owner,omitempty"`
	Repo  string `json:"repo,omitempty"`
	Path  string `json:"path,omitempty"`
	// Scope is the repository owning a local action. Local paths only
	// identify an action within the repository that contains them.
	Scope string `json:"scope,omitempty"`
}

// Identity returns the identity of the reference.
// repository is the repository where the reference is used and only
// matters for local references.
func (r *Reference) Identity(repository string) Identity {
	switch r.Kind {
	case KindAction, KindReusableWorkflow:
		if r.Owner == "" {
			return Identity{Kind: r.Kind, Path: strings.TrimPrefix(r.Path, "./"), Scope: repository}
		}
		return Identity{
			Kind:  r.Kind,
			Owner: strings.ToLower(r.Owner),
			Repo:  strings.ToLower(r.Repo),
			Path:  r.Path,
		}
	case KindDocker:
		return Identity{Kind: r.Kind, Repo: r.Repo}
	case KindLocal:
		return Identity{Kind: r.Kind, Path: strings.TrimPrefix(r.Path, "./"), Scope: repository}
	default:
		return Identity{Kind: KindMalformed, Path: r.Raw}
	}
}

func (id Identity) String() string {
	switch {
	case id.Scope != "":
		return string(id.Kind) + ":" + id.Scope + ":./" + id.Path
	case id.Owner != "":
		s := string(id.Kind) + ":" + id.Owner + "/" + id.Repo
		if id.Path != "" {
			s += "/" + id.Path
		}
		return s
	case id.Repo != "":
		return string(id.Kind) + ":" + id.Repo
	default:
		return string(id.Kind) + ":" + id.Path
	}
}

// Less orders identities by their string form.
func (id Identity) Less(other Identity) bool {
	return id.String() < other.String()
}
