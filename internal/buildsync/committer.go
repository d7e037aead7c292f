package buildsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/buildsync/buildsync/internal/buildsdk"
	"github.com/buildsync/buildsync/internal/retry"
)

const (
	DefaultCommitAttempts = 6
	commitBackoffBase     = time.Second
)

// VersionCommitter creates the build version once the files are in place.
// The backend answers 400 while freshly uploaded files are still settling, so
// those responses are retried with exponential backoff.
type VersionCommitter struct {
	store  BuildStore
	policy retry.Policy
}

func NewVersionCommitter(store BuildStore, attempts int) *VersionCommitter {
	if attempts <= 0 {
		attempts = DefaultCommitAttempts
	}
	return &VersionCommitter{
		store: store,
		policy: retry.Policy{
			MaxAttempts: attempts,
			Backoff:     retry.Exponential(commitBackoffBase),
			Retryable:   isTransientCommitError,
			OnRetry: func(attempt int, wait time.Duration, err error) {
				slog.Warn("create version failed, retrying", "attempt", attempt, "wait", wait, "error", err)
			},
		},
	}
}

// NewSingleShotCommitter never retries
func NewSingleShotCommitter(store BuildStore) *VersionCommitter {
	return &VersionCommitter{store: store, policy: retry.Once()}
}

func isTransientCommitError(err error) bool {
	return buildsdk.IsStatus(err, http.StatusBadRequest)
}

// Commit submits req. API failures come back as *UserError.
func (c *VersionCommitter) Commit(ctx context.Context, buildID int64, req *buildsdk.CreateVersionRequest) (*buildsdk.BuildVersion, error) {
	version, err := retry.Do(ctx, c.policy, func(ctx context.Context, attempt int) (*buildsdk.BuildVersion, error) {
		slog.Debug("create version", "build", buildID, "name", req.Name, "attempt", attempt)
		return c.store.CreateVersion(ctx, buildID, req)
	})
	if err == nil {
		return version, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return nil, err
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return nil, &UserError{
			Message:  "failed to create build version",
			Attempts: exhausted.Attempts,
			Err:      exhausted.Err,
		}
	}

	var sdkErr buildsdk.SDKError
	if errors.As(err, &sdkErr) {
		return nil, &UserError{Message: "failed to create build version", Attempts: 1, Err: err}
	}

	return nil, fmt.Errorf("create build version: %w", err)
}
