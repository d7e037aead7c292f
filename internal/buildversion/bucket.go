package buildversion

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/buildsync/buildsync/internal/buildsdk"
	"github.com/buildsync/buildsync/internal/buildsync"
)

// externalBucketSource points a version at a bucket the user owns
type externalBucketSource struct {
	provider Kind
}

func (s externalBucketSource) Kind() Kind { return s.provider }

func (s externalBucketSource) Validate(in *Input) error {
	switch s.provider {
	case KindS3:
		for _, r := range []struct{ key, value string }{
			{"access-key", in.AccessKey},
			{"secret-key", in.SecretKey},
			{"bucket-url", in.BucketURL},
		} {
			if err := required(r.key, r.value); err != nil {
				return err
			}
		}
		return rejectSet(s.Kind(), map[string]string{
			"container-tag":             in.ContainerTag,
			"directory":                 in.Directory,
			"service-account-json-file": in.ServiceAccountJSONFile,
		})

	case KindGCS:
		if err := required("service-account-json-file", in.ServiceAccountJSONFile); err != nil {
			return err
		}
		if err := required("bucket-url", in.BucketURL); err != nil {
			return err
		}
		if in.VerifyBucket {
			return &InvalidInputError{Kind: s.Kind(), Reason: "--verify-bucket is only supported for s3 buckets"}
		}
		return rejectSet(s.Kind(), map[string]string{
			"container-tag": in.ContainerTag,
			"directory":     in.Directory,
			"access-key":    in.AccessKey,
			"secret-key":    in.SecretKey,
		})
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedType, s.provider)
}

func (s externalBucketSource) Create(ctx context.Context, env *Env) (*Outcome, error) {
	in := env.Input
	req := &buildsdk.CreateVersionRequest{Name: in.Name}

	switch s.provider {
	case KindS3:
		if in.VerifyBucket && env.Verifier != nil {
			if err := env.Verifier.VerifyS3(ctx, in.BucketURL, in.AccessKey, in.SecretKey); err != nil {
				return nil, &buildsync.UserError{Message: "bucket check failed", Err: err}
			}
		}
		req.S3 = &buildsdk.S3Bucket{
			AccessKey: in.AccessKey,
			SecretKey: in.SecretKey,
			BucketURL: in.BucketURL,
		}

	case KindGCS:
		serviceAccount, err := ReadServiceAccount(in.ServiceAccountJSONFile)
		if err != nil {
			return nil, &buildsync.UserError{Message: "cannot read service account file", Err: err}
		}
		req.GCS = &buildsdk.GCSBucket{
			BucketURL:          in.BucketURL,
			ServiceAccountJSON: serviceAccount,
		}
	}

	v, err := env.Committer.Commit(ctx, env.Build.ID, req)
	if err != nil {
		return nil, err
	}
	return &Outcome{Kind: s.Kind(), Version: v}, nil
}

// ReadServiceAccount returns the contents of a service account key file.
// The file must hold a json object.
func ReadServiceAccount(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	var obj map[string]any
	if err := json.Unmarshal(content, &obj); err != nil || obj == nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidServiceAccount, path)
	}

	return string(content), nil
}
