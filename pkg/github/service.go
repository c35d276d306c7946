package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// RepositoriesService defines the GitHub Repositories API operations used by a scan.
type RepositoriesService interface {
	ListByOrg(ctx context.Context, org string, opts *RepositoryListByOrgOptions) ([]*Repository, *Response, error)
	Get(ctx context.Context, owner, repo string) (*Repository, *Response, error)
	GetContents(ctx context.Context, owner, repo, path string, opts *RepositoryContentGetOptions) (*RepositoryContent, []*RepositoryContent, *Response, error)
}

// GitService defines the GitHub Git API operations used by a scan.
type GitService interface {
	GetRef(ctx context.Context, owner, repo, ref string) (*Reference, *Response, error)
}

// retrier retries requests rejected by the rate limit.
type retrier struct {
	logE       *logrus.Entry
	maxRetries int
	baseDelay  time.Duration
}

func newRetrier(logE *logrus.Entry) *retrier {
	return &retrier{
		logE:       logE,
		maxRetries: 5,
		baseDelay:  time.Second,
	}
}

// retry calls fn until it succeeds, fails with an error other than a rate limit error,
// or the retries run out. It waits until the rate limit is reset, or else backs off exponentially.
func retry[T any](ctx context.Context, r *retrier, fn func() (T, *Response, error)) (T, *Response, error) {
	for attempt := 0; ; attempt++ {
		v, resp, err := fn()
		if err == nil {
			return v, resp, nil
		}
		wait, ok := r.waitDuration(err, attempt)
		if !ok {
			return v, resp, err
		}
		if attempt == r.maxRetries {
			return v, resp, fmt.Errorf("max retries reached: %w", err)
		}
		r.logE.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"wait":    wait.String(),
		}).Warn("rate limited by GitHub API, retrying")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			var zero T
			return zero, nil, ctx.Err() //nolint:wrapcheck
		}
	}
}

func (r *retrier) waitDuration(err error, attempt int) (time.Duration, bool) {
	backoff := r.baseDelay * time.Duration(1<<attempt)
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		if wait := time.Until(rateLimitErr.Rate.Reset.Time); wait > 0 {
			return wait, true
		}
		return backoff, true
	}
	var abuseErr *AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		if d := abuseErr.GetRetryAfter(); d > 0 {
			return d, true
		}
		return backoff, true
	}
	return 0, false
}

func isNotFound(resp *Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}
