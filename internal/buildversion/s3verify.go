package buildversion

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultS3Region = "us-east-1"

// BucketVerifier checks that a bucket is reachable with the given credentials
// before a version is pointed at it
type BucketVerifier interface {
	VerifyS3(ctx context.Context, bucketURL, accessKey, secretKey string) error
}

// S3Location is a parsed bucket url
type S3Location struct {
	Bucket string
	Prefix string
	Region string
}

// ParseS3BucketURL accepts `s3://bucket/prefix` and the virtual-hosted
// `https://bucket.s3.region.amazonaws.com/prefix` form
func ParseS3BucketURL(raw string) (*S3Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid bucket url: %w", err)
	}

	prefix := strings.Trim(u.Path, "/")

	switch u.Scheme {
	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("invalid bucket url %q: missing bucket", raw)
		}
		return &S3Location{Bucket: u.Host, Prefix: prefix}, nil

	case "https", "http":
		host := u.Hostname()
		bucket, rest, ok := strings.Cut(host, ".s3")
		if !ok || bucket == "" || !strings.HasSuffix(host, ".amazonaws.com") {
			return nil, fmt.Errorf("invalid bucket url %q: not an s3 host", raw)
		}
		loc := &S3Location{Bucket: bucket, Prefix: prefix}
		// rest is ".amazonaws.com" or ".<region>.amazonaws.com" or "-<region>.amazonaws.com"
		region := strings.TrimSuffix(rest, ".amazonaws.com")
		region = strings.TrimLeft(region, ".-")
		if region != "" {
			loc.Region = region
		}
		return loc, nil
	}

	return nil, fmt.Errorf("invalid bucket url %q: unsupported scheme", raw)
}

// S3Verifier runs HeadBucket against the bucket
type S3Verifier struct {
	Region   string // used when the url carries none
	Endpoint string // s3-compatible endpoint, path style
	Timeout  time.Duration
}

func (v *S3Verifier) VerifyS3(ctx context.Context, bucketURL, accessKey, secretKey string) error {
	loc, err := ParseS3BucketURL(bucketURL)
	if err != nil {
		return err
	}

	region := loc.Region
	if region == "" {
		region = v.Region
	}
	if region == "" {
		region = defaultS3Region
	}

	timeout := v.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
		config.WithRegion(region),
	)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if v.Endpoint != "" {
			o.BaseEndpoint = aws.String(v.Endpoint)
			o.UsePathStyle = true
		}
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(loc.Bucket)}); err != nil {
		return fmt.Errorf("bucket %q not reachable: %w", loc.Bucket, err)
	}
	return nil
}
