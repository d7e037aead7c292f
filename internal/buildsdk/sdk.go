package buildsdk

import (
	"net/http"
	"sync"
	"time"

	"github.com/imroc/req/v3"

	"github.com/buildsync/buildsync/internal/utils"
	"github.com/buildsync/buildsync/internal/version"
)

// BuildSDK is the main client for the build storage API
type BuildSDK struct {
	client   *req.Client
	upload   *http.Client
	config   *Config
	Builds   *BuildsAPI
	Uploader *PresignedUploader

	muTimeout sync.Mutex
}

// New creates a new BuildSDK client.
// The client does not retry on its own: callers decide which calls are retryable.
func New(config *Config) (*BuildSDK, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client := req.C().
		SetBaseURL(config.BaseURL).
		SetTimeout(config.Timeout).
		SetUserAgent(UserAgent()).
		SetCommonHeader(HeaderVersion, version.Version).
		SetCommonBearerAuthToken(config.AccessToken).
		SetCommonPathParam("projectId", config.ProjectID).
		SetCommonPathParam("environmentId", config.EnvironmentID).
		SetCommonErrorResult(&APIError{}).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	if utils.HWID != "" {
		client.SetCommonHeader(HeaderDeviceID, utils.HWID)
	}

	// signed urls carry their own auth; keep them off the api client
	upload := &http.Client{Timeout: config.Timeout}

	return &BuildSDK{
		client:   client,
		upload:   upload,
		config:   config,
		Builds:   newBuildsAPI(client),
		Uploader: NewPresignedUploader(upload),
	}, nil
}

// Timeout returns the current request timeout of the api client.
func (s *BuildSDK) Timeout() time.Duration {
	s.muTimeout.Lock()
	defer s.muTimeout.Unlock()
	return s.client.GetClient().Timeout
}

// ExtendTimeout raises the timeout of both the api client and the signed-url
// client to d, and returns a func that restores the previous values.
// It never lowers an existing timeout. Not safe for overlapping sessions on
// one BuildSDK: each restore writes back the values it saw.
func (s *BuildSDK) ExtendTimeout(d time.Duration) (restore func()) {
	s.muTimeout.Lock()
	defer s.muTimeout.Unlock()

	prevAPI := s.client.GetClient().Timeout
	prevUpload := s.upload.Timeout
	if d > prevAPI {
		s.client.SetTimeout(d)
	}
	if d > prevUpload {
		s.upload.Timeout = d
	}

	return func() {
		s.muTimeout.Lock()
		defer s.muTimeout.Unlock()
		s.client.SetTimeout(prevAPI)
		s.upload.Timeout = prevUpload
	}
}

// EnableDebug dumps requests and responses to the log.
func (s *BuildSDK) EnableDebug() {
	s.client.EnableDumpAllWithoutRequestBody()
}

// Close releases idle connections
func (s *BuildSDK) Close() {
	s.client.GetClient().CloseIdleConnections()
	s.upload.CloseIdleConnections()
}
