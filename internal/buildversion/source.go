// Package buildversion creates build versions from the different kinds of
// content a build can be made of.
package buildversion

import (
	"context"
	"errors"
	"fmt"

	"github.com/buildsync/buildsync/internal/buildsdk"
	"github.com/buildsync/buildsync/internal/buildsync"
)

var (
	ErrInvalidInput          = errors.New("buildversion: invalid input")
	ErrUnsupportedType       = errors.New("buildversion: unsupported build type")
	ErrBuildSyncing          = errors.New("buildversion: build is currently syncing")
	ErrNoDeliveryBucket      = errors.New("buildversion: build has no content delivery bucket")
	ErrInvalidServiceAccount = errors.New("buildversion: service account file is not a json object")
)

// Kind names a version source
type Kind string

const (
	KindContainer     Kind = "container"
	KindDirectorySync Kind = "directory-sync"
	KindS3            Kind = "s3"
	KindGCS           Kind = "gcs"
)

// Input is everything the user may pass to create a version. Which fields are
// allowed depends on the build type.
type Input struct {
	BuildID int64
	Name    string

	// container builds
	ContainerTag string

	// file upload builds
	Directory      string
	RemoveOldFiles bool

	// bucket builds
	BucketURL              string
	AccessKey              string
	SecretKey              string
	ServiceAccountJSONFile string
	VerifyBucket           bool
}

// InvalidInputError reports flags that do not fit the build type
type InvalidInputError struct {
	Kind   Kind
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input for %s build: %s", e.Kind, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Env carries the collaborators a source needs to create a version
type Env struct {
	Build     *buildsdk.Build
	Input     *Input
	Committer *buildsync.VersionCommitter
	Engine    *buildsync.SyncEngine
	Verifier  BucketVerifier
}

// Outcome is the result of creating a version
type Outcome struct {
	Kind    Kind
	Version *buildsdk.BuildVersion
	Sync    *buildsync.SyncResult // directory sync only
}

// Source is one way of producing a build version
type Source interface {
	Kind() Kind
	Validate(in *Input) error
	Create(ctx context.Context, env *Env) (*Outcome, error)
}

// SourceFor picks the source matching the build type
func SourceFor(t buildsdk.BuildType) (Source, error) {
	switch t {
	case buildsdk.BuildTypeContainer:
		return containerSource{}, nil
	case buildsdk.BuildTypeFileUpload:
		return directorySyncSource{}, nil
	case buildsdk.BuildTypeS3:
		return externalBucketSource{provider: KindS3}, nil
	case buildsdk.BuildTypeGCS:
		return externalBucketSource{provider: KindGCS}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, t)
	}
}

func required(key, value string) error {
	if value == "" {
		return &buildsync.MissingInputError{Key: key}
	}
	return nil
}

// rejectSet fails when any of the named values is set
func rejectSet(kind Kind, values map[string]string) error {
	for _, key := range []string{"container-tag", "directory", "bucket-url", "access-key", "secret-key", "service-account-json-file"} {
		if v, ok := values[key]; ok && v != "" {
			return &InvalidInputError{Kind: kind, Reason: fmt.Sprintf("--%s cannot be used", key)}
		}
	}
	return nil
}
