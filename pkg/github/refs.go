package github

import (
	"context"
	"fmt"
	"sync"

	"github.com/gharisk/gharisk/pkg/action"
	"github.com/gharisk/gharisk/pkg/engine"
	"github.com/sirupsen/logrus"
	"github.com/suzuki-shunsuke/logrus-error/logerr"
	"golang.org/x/sync/errgroup"
)

// RefResolver looks up whether versions of actions are tags or branches.
type RefResolver struct {
	git     GitService
	retrier *retrier
	logE    *logrus.Entry
	workers int
	mutex   sync.Mutex
	// Refs caches results keyed by action.RefKey.
	Refs map[string]*GetRefResult
}

// GetRefResult holds the cached result of resolving a version.
type GetRefResult struct {
	Type action.RefType
	err  error
}

func NewRefResolver(logE *logrus.Entry, git GitService, workers int) *RefResolver {
	return &RefResolver{
		git:     git,
		retrier: newRetrier(logE),
		logE:    logE,
		workers: max(workers, 1),
		Refs:    map[string]*GetRefResult{},
	}
}

// Resolve looks up the ref type of each version.
// Versions which can't be looked up are left out, so their pin kinds fall back
// to the classification of the version alone.
// An error is returned only if ctx is canceled.
func (r *RefResolver) Resolve(ctx context.Context, versions []engine.ActionVersion) (action.StaticRefs, error) {
	refs := action.StaticRefs{}
	var mutex sync.Mutex
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.workers)
	for _, v := range versions {
		eg.Go(func() error {
			t, err := r.RefType(ctx, v.Owner, v.Repo, v.Version)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr //nolint:wrapcheck
				}
				logerr.WithError(r.logE.WithFields(logrus.Fields{
					"action":  v.Owner + "/" + v.Repo,
					"version": v.Version,
				}), err).Warn("resolve a ref of an action")
				return nil
			}
			if t == action.RefTypeUnknown {
				return nil
			}
			mutex.Lock()
			refs.Set(v.Owner, v.Repo, v.Version, t)
			mutex.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("resolve refs of actions: %w", err)
	}
	return refs, nil
}

// RefType returns the ref type of a version with caching.
// A tag wins over a branch of the same name, as GitHub Actions resolves it.
func (r *RefResolver) RefType(ctx context.Context, owner, repo, version string) (action.RefType, error) {
	key := action.RefKey(owner, repo, version)
	r.mutex.Lock()
	result, ok := r.Refs[key]
	r.mutex.Unlock()
	if ok {
		return result.Type, result.err
	}

	t, err := r.refType(ctx, owner, repo, version)
	if ctx.Err() == nil {
		r.mutex.Lock()
		r.Refs[key] = &GetRefResult{Type: t, err: err}
		r.mutex.Unlock()
	}
	return t, err
}

func (r *RefResolver) refType(ctx context.Context, owner, repo, version string) (action.RefType, error) {
	for _, c := range []struct {
		prefix string
		t      action.RefType
	}{
		{prefix: "tags/", t: action.RefTypeTag},
		{prefix: "heads/", t: action.RefTypeBranch},
	} {
		_, resp, err := retry(ctx, r.retrier, func() (*Reference, *Response, error) {
			return r.git.GetRef(ctx, owner, repo, c.prefix+version) //nolint:wrapcheck
		})
		if err == nil {
			return c.t, nil
		}
		if !isNotFound(resp) {
			return action.RefTypeUnknown, fmt.Errorf("get a reference %s%s: %w", c.prefix, version, err)
		}
	}
	return action.RefTypeUnknown, nil
}
