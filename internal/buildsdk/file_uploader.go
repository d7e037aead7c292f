package buildsdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// PresignedUploader streams local files to signed urls.
//
// Not using `req` for this: signed urls need an exact Content-Length and must
// not get the api auth header, and the body is streamed from disk rather than
// buffered in memory.
type PresignedUploader struct {
	client   *http.Client
	Progress ProgressCallback
}

func NewPresignedUploader(client *http.Client) *PresignedUploader {
	if client == nil {
		client = http.DefaultClient
	}
	return &PresignedUploader{client: client}
}

// UploadSigned PUTs the contents of filePath to signedURL.
func (u *PresignedUploader) UploadSigned(ctx context.Context, signedURL string, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, filePath)
		}
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	var body io.Reader = file
	if u.Progress != nil {
		body = &progressReader{
			reader:   file,
			path:     filePath,
			total:    info.Size(),
			callback: u.Progress,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signedURL, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.ContentLength = info.Size() // signed urls reject chunked bodies
	if info.Size() == 0 {
		req.Body = http.NoBody
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return classifyPresignedError(resp.StatusCode, string(respBody))
}

func classifyPresignedError(status int, body string) *PresignedURLError {
	var code, msg string
	switch status {
	case http.StatusForbidden:
		switch {
		case strings.Contains(body, "expired"):
			code, msg = CodePresignedURLExpired, "expired"
		case strings.Contains(body, "SignatureDoesNotMatch"):
			code, msg = CodePresignedURLInvalid, "invalid"
		default:
			code, msg = CodePresignedURLForbidden, "access denied"
		}
	case http.StatusNotFound:
		code, msg = CodePresignedURLNotFound, "not found"
	case http.StatusTooManyRequests:
		code, msg = CodePresignedURLRateLimit, "rate limit exceeded"
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		code, msg = CodeInternalError, strings.TrimSpace(body)
	default:
		code, msg = CodeUnknownError, strings.TrimSpace(body)
	}
	return &PresignedURLError{StatusCode: status, Code: code, Message: msg}
}
