package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/popcorn-palace/internal/lock"
	"github.com/iliyamo/popcorn-palace/internal/metrics"
	"github.com/iliyamo/popcorn-palace/internal/repository"
)

// outcomes names the domain errors for the outcome metric label.
var outcomes = map[error]string{
	repository.ErrNotFound:     "not_found",
	repository.ErrConflict:     "conflict",
	repository.ErrInvalidRange: "invalid_range",
	repository.ErrUnavailable:  "unavailable",
}

func record(operation string, err error) {
	metrics.RecordOperation(operation, metrics.Outcome(err, outcomes))
}

// acquire takes the lock "<scope>:<key>" and reports the wait.  Any
// failure to lock surfaces as ErrUnavailable.
func acquire(ctx context.Context, l lock.Locker, scope, key string) (func(), error) {
	start := time.Now()
	release, err := l.Lock(ctx, scope+":"+key)
	metrics.RecordLockWait(scope, time.Since(start))
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return nil, fmt.Errorf("%w: timed out waiting for %s %s", repository.ErrUnavailable, scope, key)
		}
		return nil, fmt.Errorf("%w: lock %s %s: %v", repository.ErrUnavailable, scope, key, err)
	}
	return release, nil
}

// acquireAll locks every distinct key of scope in sorted order and returns
// one release for all of them.
func acquireAll(ctx context.Context, l lock.Locker, scope string, keys ...string) (func(), error) {
	seen := make(map[string]bool, len(keys))
	uniq := make([]string, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			uniq = append(uniq, k)
		}
	}
	sort.Strings(uniq)

	releases := make([]func(), 0, len(uniq))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, k := range uniq {
		r, err := acquire(ctx, l, scope, k)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, r)
	}
	return releaseAll, nil
}

// isNotFound reports whether err wraps repository.ErrNotFound.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
