package buildversion

import (
	"context"

	"github.com/buildsync/buildsync/internal/buildsdk"
	"github.com/buildsync/buildsync/internal/buildsync"
)

type directorySyncSource struct{}

func (directorySyncSource) Kind() Kind { return KindDirectorySync }

func (s directorySyncSource) Validate(in *Input) error {
	if err := required("directory", in.Directory); err != nil {
		return err
	}
	return rejectSet(s.Kind(), map[string]string{
		"container-tag":             in.ContainerTag,
		"bucket-url":                in.BucketURL,
		"access-key":                in.AccessKey,
		"secret-key":                in.SecretKey,
		"service-account-json-file": in.ServiceAccountJSONFile,
	})
}

func (s directorySyncSource) Create(ctx context.Context, env *Env) (*Outcome, error) {
	if env.Build.SyncStatus == buildsdk.SyncStatusSyncing {
		return nil, &buildsync.UserError{Message: "cannot create a version", Err: ErrBuildSyncing}
	}
	if env.Build.CCD == nil || env.Build.CCD.BucketID == "" {
		return nil, &buildsync.UserError{Message: "cannot create a version", Err: ErrNoDeliveryBucket}
	}

	res, err := env.Engine.Sync(ctx, &buildsync.SyncRequest{
		BuildID:     env.Build.ID,
		RootDir:     env.Input.Directory,
		Prune:       env.Input.RemoveOldFiles,
		VersionName: env.Input.Name,
		Reference:   &buildsdk.CCDReference{BucketID: env.Build.CCD.BucketID},
	})
	if err != nil {
		return &Outcome{Kind: s.Kind(), Sync: res}, err
	}

	return &Outcome{Kind: s.Kind(), Version: res.Version, Sync: res}, nil
}
