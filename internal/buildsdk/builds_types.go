package buildsdk

import (
	"time"
)

// BuildType is the kind of content a build is made of.
type BuildType string

const (
	BuildTypeContainer  BuildType = "CONTAINER"
	BuildTypeFileUpload BuildType = "FILEUPLOAD"
	BuildTypeS3         BuildType = "S3"
	BuildTypeGCS        BuildType = "GCS"
)

// SyncStatus is the backend's view of a build's file set.
type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "SYNCED"
	SyncStatusSyncing SyncStatus = "SYNCING"
	SyncStatusFailed  SyncStatus = "FAILED"
)

// Build represents a build as returned by the backend
type Build struct {
	ID         int64       `json:"buildID" yaml:"buildID"`
	Name       string      `json:"buildName" yaml:"buildName"`
	Type       BuildType   `json:"buildType" yaml:"buildType"`
	OSFamily   string      `json:"osFamily,omitempty" yaml:"osFamily,omitempty"`
	SyncStatus SyncStatus  `json:"syncStatus,omitempty" yaml:"syncStatus,omitempty"`
	CCD        *CCDDetails `json:"ccd,omitempty" yaml:"ccd,omitempty"`
	Updated    time.Time   `json:"updated" yaml:"updated"`
}

// CCDDetails points at the content-delivery bucket backing a file-upload build
type CCDDetails struct {
	BucketID  string `json:"bucketID" yaml:"bucketID"`
	ReleaseID string `json:"releaseID,omitempty" yaml:"releaseID,omitempty"`
}

// BuildFile is a file the backend already holds for a build
type BuildFile struct {
	Path         string    `json:"path" yaml:"path"`
	FileSize     int64     `json:"fileSize" yaml:"fileSize"`
	Hash         string    `json:"hash,omitempty" yaml:"hash,omitempty"`
	LastModified time.Time `json:"lastModified" yaml:"lastModified"`
}

// ===================================================================================================

// CreateOrUpdateFileRequest asks for an upload slot for one path
type CreateOrUpdateFileRequest struct {
	Path string `json:"path"`
}

// FileUploadSlot is the backend's answer to a slot request.
// When Uploaded is false, SignedURL must be set.
type FileUploadSlot struct {
	Path      string `json:"path"`
	Uploaded  bool   `json:"uploaded"`
	SignedURL string `json:"signedUrl"`
}

// ===================================================================================================

// FileList is one page of a build's files
type FileList struct {
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
	Results []*BuildFile `json:"results"`
}

// ===================================================================================================

// CreateVersionRequest commits a new build version. Exactly one source is set.
type CreateVersionRequest struct {
	Name      string          `json:"buildVersionName"`
	Container *ContainerImage `json:"container,omitempty"`
	CCD       *CCDReference   `json:"ccd,omitempty"`
	S3        *S3Bucket       `json:"s3,omitempty"`
	GCS       *GCSBucket      `json:"gcs,omitempty"`
}

type ContainerImage struct {
	ImageTag string `json:"imageTag"`
}

type CCDReference struct {
	BucketID string `json:"bucketID"`
}

type S3Bucket struct {
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	BucketURL string `json:"bucketUrl"`
}

type GCSBucket struct {
	BucketURL          string `json:"bucketUrl"`
	ServiceAccountJSON string `json:"serviceAccountJsonFile"`
}

// BuildVersion is a committed, immutable snapshot of a build
type BuildVersion struct {
	BuildID   int64     `json:"buildID" yaml:"buildID"`
	Name      string    `json:"buildVersionName" yaml:"buildVersionName"`
	Created   time.Time `json:"created" yaml:"created"`
	FileCount int       `json:"fileCount,omitempty" yaml:"fileCount,omitempty"`
}
