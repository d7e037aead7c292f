package buildsdk_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildsync/buildsync/internal/buildsdk"
	"github.com/buildsync/buildsync/internal/buildserver"
)

const testToken = "test-access-token"

func setup(t *testing.T, opts ...buildserver.Option) (*buildsdk.BuildSDK, *buildserver.Server) {
	t.Helper()

	srv := buildserver.New(append([]buildserver.Option{buildserver.WithAccessToken(testToken)}, opts...)...)
	srv.AddBuild(buildsdk.Build{ID: 42, Name: "client", Type: buildsdk.BuildTypeFileUpload})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	sdk, err := buildsdk.New(&buildsdk.Config{
		BaseURL:       ts.URL,
		ProjectID:     uuid.NewString(),
		EnvironmentID: uuid.NewString(),
		AccessToken:   testToken,
	})
	require.NoError(t, err)
	t.Cleanup(sdk.Close)

	return sdk, srv
}

func TestBuildsAPI_GetBuild(t *testing.T) {
	sdk, _ := setup(t)

	b, err := sdk.Builds.GetBuild(t.Context(), 42)
	require.NoError(t, err)
	assert.Equal(t, "client", b.Name)
	assert.Equal(t, buildsdk.BuildTypeFileUpload, b.Type)

	_, err = sdk.Builds.GetBuild(t.Context(), 7)
	require.Error(t, err)
	assert.True(t, buildsdk.IsStatus(err, http.StatusNotFound))

	var apiErr *buildsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, buildsdk.CodeBuildNotFound, apiErr.Code)
}

func TestBuildsAPI_Unauthorized(t *testing.T) {
	_, srv := setup(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	sdk, err := buildsdk.New(&buildsdk.Config{
		BaseURL:       ts.URL,
		ProjectID:     uuid.NewString(),
		EnvironmentID: uuid.NewString(),
		AccessToken:   "wrong",
	})
	require.NoError(t, err)

	_, err = sdk.Builds.GetBuild(t.Context(), 42)
	assert.True(t, buildsdk.IsStatus(err, http.StatusUnauthorized))
}

func TestBuildsAPI_UploadListDeleteCommit(t *testing.T) {
	sdk, srv := setup(t)
	ctx := t.Context()

	local := filepath.Join(t.TempDir(), "game.exe")
	require.NoError(t, os.WriteFile(local, []byte("binary"), 0o644))

	slot, err := sdk.Builds.CreateOrUpdateFile(ctx, 42, "bin/game.exe")
	require.NoError(t, err)
	require.False(t, slot.Uploaded)
	require.NotEmpty(t, slot.SignedURL)

	require.NoError(t, sdk.Uploader.UploadSigned(ctx, slot.SignedURL, local))

	page, err := sdk.Builds.ListFiles(ctx, 42, 100, 0)
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "bin/game.exe", page.Results[0].Path)
	assert.Equal(t, int64(6), page.Results[0].FileSize)

	v, err := sdk.Builds.CreateVersion(ctx, 42, &buildsdk.CreateVersionRequest{
		Name: "1.0.0",
		CCD:  &buildsdk.CCDReference{BucketID: "bucket"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v.Name)
	assert.Equal(t, 1, v.FileCount)

	require.NoError(t, sdk.Builds.DeleteFileByPath(ctx, 42, "bin/game.exe"))
	assert.Empty(t, srv.Files(42))

	err = sdk.Builds.DeleteFileByPath(ctx, 42, "bin/game.exe")
	assert.True(t, buildsdk.IsStatus(err, http.StatusNotFound))
}

func TestBuildsAPI_DeletePathWithSpaces(t *testing.T) {
	sdk, srv := setup(t)
	srv.SeedFile(42, "Game Data/level 1.pak", []byte("x"), false)

	require.NoError(t, sdk.Builds.DeleteFileByPath(t.Context(), 42, "Game Data/level 1.pak"))
	assert.Empty(t, srv.Files(42))
}

func TestBuildsAPI_ListConflict(t *testing.T) {
	sdk, _ := setup(t, buildserver.WithFaults(buildserver.Faults{ListConflict: true}))

	_, err := sdk.Builds.ListFiles(t.Context(), 42, 100, 0)
	require.Error(t, err)
	assert.True(t, buildsdk.IsStatus(err, http.StatusConflict))
}

func TestBuildsAPI_CreateVersionValidation(t *testing.T) {
	sdk, _ := setup(t)

	_, err := sdk.Builds.CreateVersion(t.Context(), 42, &buildsdk.CreateVersionRequest{})
	require.Error(t, err)

	var apiErr *buildsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, buildsdk.CodeBuildValidation, apiErr.Code)
	assert.NotEmpty(t, apiErr.Details)
}

func TestBuildsAPI_CreateVersionNotConsistent(t *testing.T) {
	sdk, _ := setup(t, buildserver.WithFaults(buildserver.Faults{CommitTransient: 1}))

	_, err := sdk.Builds.CreateVersion(t.Context(), 42, &buildsdk.CreateVersionRequest{
		Name: "1.0.0",
		CCD:  &buildsdk.CCDReference{BucketID: "bucket"},
	})
	assert.True(t, buildsdk.IsStatus(err, http.StatusBadRequest))
}

func newRawSDK(t *testing.T, status int, contentType, body string) *buildsdk.BuildSDK {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)

	sdk, err := buildsdk.New(&buildsdk.Config{
		BaseURL:       ts.URL,
		ProjectID:     uuid.NewString(),
		EnvironmentID: uuid.NewString(),
		AccessToken:   testToken,
	})
	require.NoError(t, err)
	t.Cleanup(sdk.Close)
	return sdk
}

func TestBuildsAPI_ErrorStatusWithoutProblemBody(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
	}{
		{"empty json 409", http.StatusConflict, "application/json", ""},
		{"blank json 409", http.StatusConflict, "application/json", " "},
		{"plain text 409", http.StatusConflict, "text/plain", "Conflict"},
		{"no content type 409", http.StatusConflict, "", ""},
		{"html 400", http.StatusBadRequest, "text/html", "<html><body>Bad Request</body></html>"},
		{"broken json 400", http.StatusBadRequest, "application/json", "{not json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sdk := newRawSDK(t, tt.status, tt.contentType, tt.body)

			_, err := sdk.Builds.ListFiles(t.Context(), 42, 100, 0)
			require.Error(t, err)
			assert.Equal(t, tt.status, buildsdk.StatusCode(err), err.Error())

			var sdkErr buildsdk.SDKError
			require.True(t, errors.As(err, &sdkErr))
			assert.Equal(t, buildsdk.CodeUnknownError, sdkErr.ErrorCode())

			_, err = sdk.Builds.CreateVersion(t.Context(), 42, &buildsdk.CreateVersionRequest{Name: "v1"})
			require.Error(t, err)
			assert.True(t, buildsdk.IsStatus(err, tt.status), err.Error())
		})
	}
}

func TestBuildsAPI_TransportErrorHasNoStatus(t *testing.T) {
	sdk := newRawSDK(t, http.StatusOK, "", "")
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := sdk.Builds.ListFiles(ctx, 42, 100, 0)
	require.Error(t, err)
	assert.Equal(t, 0, buildsdk.StatusCode(err))
	assert.Contains(t, err.Error(), "http request error")
}
