package action

import (
	"regexp"
	"strings"

	"github.com/hashicorp/go-version"
)

type PinKind string

const (
	PinKindUnpinnedBranch PinKind = "unpinned-branch"
	PinKindUnpinnedTag    PinKind = "unpinned-tag"
	PinKindPinnedSHA      PinKind = "pinned-sha"
)

// RefType is the published type of a git ref.
type RefType string

const (
	RefTypeUnknown RefType = ""
	RefTypeTag     RefType = "tag"
	RefTypeBranch  RefType = "branch"
)

// RefLookup tells whether a version of an action is a published tag or branch.
// Implementations hold facts gathered beforehand; they never access the network.
type RefLookup interface {
	RefType(owner, repo, version string) RefType
}

var (
	fullCommitSHAPattern  = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)
	shortCommitSHAPattern = regexp.MustCompile(`^[0-9a-f]{7,39}$`)
	dockerDigestPattern   = regexp.MustCompile(`^sha256:[0-9a-f]{64}$`)
)

// IsFullCommitSHA returns true if v is a 40 characters hexadecimal commit hash.
func IsFullCommitSHA(v string) bool {
	return fullCommitSHAPattern.MatchString(v)
}

// ResolvePinKind derives the pin kind of r from its version specifier
// and sets r.PinKind. refs may be nil.
// Versions that are neither commit hashes nor known refs are classified by
// their shape: anything parseable as a version is a tag, everything else is
// treated as a branch.
func (r *Reference) ResolvePinKind(refs RefLookup) PinKind {
	r.PinKind = pinKind(r, refs)
	return r.PinKind
}

func pinKind(r *Reference, refs RefLookup) PinKind {
	switch r.Kind {
	case KindDocker:
		return dockerPinKind(r.Version)
	case KindLocal, KindMalformed:
		return ""
	}
	if IsFullCommitSHA(r.Version) {
		return PinKindPinnedSHA
	}
	if refs != nil && r.Owner != "" {
		switch refs.RefType(r.Owner, r.Repo, r.Version) {
		case RefTypeTag:
			return PinKindUnpinnedTag
		case RefTypeBranch:
			return PinKindUnpinnedBranch
		}
	}
	if looksLikeTag(r.Version) {
		return PinKindUnpinnedTag
	}
	return PinKindUnpinnedBranch
}

func looksLikeTag(v string) bool {
	// go-version accepts short commit hashes such as 8e5e7e5 as a version
	// with a pre-release part.
	if v == "" || shortCommitSHAPattern.MatchString(v) {
		return false
	}
	_, err := version.NewVersion(v)
	return err == nil
}

func dockerPinKind(v string) PinKind {
	switch {
	case dockerDigestPattern.MatchString(v):
		return PinKindPinnedSHA
	case v == "" || strings.EqualFold(v, "latest"):
		return PinKindUnpinnedBranch
	default:
		return PinKindUnpinnedTag
	}
}

// StaticRefs is a RefLookup backed by a map.
// Keys are built by RefKey.
type StaticRefs map[string]RefType

// RefKey returns the key of StaticRefs.
func RefKey(owner, repo, version string) string {
	return strings.ToLower(owner) + "/" + strings.ToLower(repo) + "@" + version
}

func (s StaticRefs) RefType(owner, repo, version string) RefType {
	if s == nil {
		return RefTypeUnknown
	}
	return s[RefKey(owner, repo, version)]
}

// Set records the type of a ref.
func (s StaticRefs) Set(owner, repo, version string, t RefType) {
	s[RefKey(owner, repo, version)] = t
}
