package buildsdk

import (
	"context"
	"strconv"

	"github.com/imroc/req/v3"
)

const (
	v1Builds        = "/v1/projects/{projectId}/environments/{environmentId}/builds"
	v1Build         = v1Builds + "/{buildId}"
	v1BuildFiles    = v1Build + "/files"
	v1BuildVersions = v1Build + "/versions"
)

type BuildsAPI struct {
	client *req.Client
}

func newBuildsAPI(client *req.Client) *BuildsAPI {
	return &BuildsAPI{
		client: client,
	}
}

func buildID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// GetBuild fetches a single build
func (b *BuildsAPI) GetBuild(ctx context.Context, id int64) (apiResp *Build, err error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("buildId", buildID(id)).
		SetSuccessResult(&apiResp).
		Get(v1Build)

	if err := handleAPIError(resp, err, "get build"); err != nil {
		return nil, err
	}

	if apiResp == nil {
		return nil, ErrInvalidResponse
	}

	return apiResp, nil
}

// CreateOrUpdateFile requests an upload slot for path.
// The reply either says the file is already uploaded or carries a signed url.
func (b *BuildsAPI) CreateOrUpdateFile(ctx context.Context, id int64, path string) (apiResp *FileUploadSlot, err error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("buildId", buildID(id)).
		SetBody(&CreateOrUpdateFileRequest{Path: path}).
		SetSuccessResult(&apiResp).
		Post(v1BuildFiles)

	if err := handleAPIError(resp, err, "create or update build file"); err != nil {
		return nil, err
	}

	if apiResp == nil {
		return nil, ErrInvalidResponse
	}

	return apiResp, nil
}

// ListFiles returns one page of the files the backend holds for a build
func (b *BuildsAPI) ListFiles(ctx context.Context, id int64, limit, offset int) (apiResp *FileList, err error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("buildId", buildID(id)).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetQueryParam("offset", strconv.Itoa(offset)).
		SetSuccessResult(&apiResp).
		Get(v1BuildFiles)

	if err := handleAPIError(resp, err, "list build files"); err != nil {
		return nil, err
	}

	if apiResp == nil {
		return &FileList{Limit: limit, Offset: offset}, nil
	}

	return apiResp, nil
}

// DeleteFileByPath removes one file from a build
func (b *BuildsAPI) DeleteFileByPath(ctx context.Context, id int64, path string) error {
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("buildId", buildID(id)).
		SetQueryParam("path", path).
		Delete(v1BuildFiles)

	return handleAPIError(resp, err, "delete build file")
}

// CreateVersion commits a new build version
func (b *BuildsAPI) CreateVersion(ctx context.Context, id int64, params *CreateVersionRequest) (apiResp *BuildVersion, err error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("buildId", buildID(id)).
		SetBody(params).
		SetSuccessResult(&apiResp).
		Post(v1BuildVersions)

	if err := handleAPIError(resp, err, "create build version"); err != nil {
		return nil, err
	}

	if apiResp == nil {
		return nil, ErrInvalidResponse
	}

	return apiResp, nil
}
