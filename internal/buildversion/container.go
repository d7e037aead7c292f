package buildversion

import (
	"context"

	"github.com/buildsync/buildsync/internal/buildsdk"
)

type containerSource struct{}

func (containerSource) Kind() Kind { return KindContainer }

func (s containerSource) Validate(in *Input) error {
	if err := required("container-tag", in.ContainerTag); err != nil {
		return err
	}
	return rejectSet(s.Kind(), map[string]string{
		"directory":                 in.Directory,
		"bucket-url":                in.BucketURL,
		"access-key":                in.AccessKey,
		"secret-key":                in.SecretKey,
		"service-account-json-file": in.ServiceAccountJSONFile,
	})
}

func (s containerSource) Create(ctx context.Context, env *Env) (*Outcome, error) {
	v, err := env.Committer.Commit(ctx, env.Build.ID, &buildsdk.CreateVersionRequest{
		Name:      env.Input.Name,
		Container: &buildsdk.ContainerImage{ImageTag: env.Input.ContainerTag},
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Kind: s.Kind(), Version: v}, nil
}
