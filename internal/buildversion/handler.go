package buildversion

import (
	"context"
	"log/slog"

	"github.com/buildsync/buildsync/internal/buildsdk"
	"github.com/buildsync/buildsync/internal/buildsync"
)

// BuildGetter fetches build metadata
type BuildGetter interface {
	GetBuild(ctx context.Context, id int64) (*buildsdk.Build, error)
}

var _ BuildGetter = (*buildsdk.BuildsAPI)(nil)

// Handler creates versions for any build type
type Handler struct {
	builds    BuildGetter
	committer *buildsync.VersionCommitter
	engine    *buildsync.SyncEngine
	verifier  BucketVerifier
}

func NewHandler(builds BuildGetter, committer *buildsync.VersionCommitter, engine *buildsync.SyncEngine, verifier BucketVerifier) *Handler {
	return &Handler{
		builds:    builds,
		committer: committer,
		engine:    engine,
		verifier:  verifier,
	}
}

// NewHandlerWithSDK wires a Handler to a BuildSDK. Only directory syncs retry
// their commit; the other sources commit once.
func NewHandlerWithSDK(sdk *buildsdk.BuildSDK, engine *buildsync.SyncEngine) *Handler {
	return NewHandler(sdk.Builds, buildsync.NewSingleShotCommitter(sdk.Builds), engine, &S3Verifier{})
}

// CreateVersion fetches the build, validates in against its type and creates
// the version
func (h *Handler) CreateVersion(ctx context.Context, in *Input) (*Outcome, error) {
	if in.BuildID == 0 {
		return nil, &buildsync.MissingInputError{Key: "build-id"}
	}
	if in.Name == "" {
		return nil, &buildsync.MissingInputError{Key: "name"}
	}

	build, err := h.builds.GetBuild(ctx, in.BuildID)
	if err != nil {
		return nil, &buildsync.UserError{Message: "failed to get build", Err: err}
	}

	src, err := SourceFor(build.Type)
	if err != nil {
		return nil, err
	}
	if err := src.Validate(in); err != nil {
		return nil, err
	}

	slog.Info("creating build version", "build", build.ID, "buildName", build.Name, "type", build.Type, "source", src.Kind(), "name", in.Name)

	return src.Create(ctx, &Env{
		Build:     build,
		Input:     in,
		Committer: h.committer,
		Engine:    h.engine,
		Verifier:  h.verifier,
	})
}
