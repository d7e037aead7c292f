package buildserver

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/buildsync/buildsync/internal/buildsdk"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
	maxUploadSize    = 1 << 30 // 1 GiB
)

var now = func() time.Time { return time.Now().UTC() }

func contentHash(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

func (s *Server) bearerAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if s.token == "" {
			ctx.Next()
			return
		}
		header := ctx.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token != s.token {
			abortWithProblem(ctx, http.StatusUnauthorized, buildsdk.CodeAccessDenied, "invalid or missing bearer token")
			return
		}
		ctx.Next()
	}
}

// lookupBuild resolves :buildId. It must be called with the store lock held
// and aborts the request when the build does not exist.
func (s *Server) lookupBuild(ctx *gin.Context) (*buildState, bool) {
	id, err := strconv.ParseInt(ctx.Param("buildId"), 10, 64)
	if err != nil {
		abortWithProblem(ctx, http.StatusBadRequest, buildsdk.CodeInvalidRequest, "build id must be an integer")
		return nil, false
	}
	b, ok := s.store.get(id)
	if !ok {
		abortWithProblem(ctx, http.StatusNotFound, buildsdk.CodeBuildNotFound, fmt.Sprintf("build %d not found", id))
		return nil, false
	}
	return b, true
}

func (s *Server) handleGetBuild(ctx *gin.Context) {
	s.builds.Add(1)

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	b, ok := s.lookupBuild(ctx)
	if !ok {
		return
	}
	ctx.PureJSON(http.StatusOK, b.build)
}

func (s *Server) handleCreateOrUpdateFile(ctx *gin.Context) {
	s.slots.Add(1)

	var body buildsdk.CreateOrUpdateFileRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		abortWithProblem(ctx, http.StatusBadRequest, buildsdk.CodeInvalidRequest, err.Error())
		return
	}
	if details := validatePath(body.Path); details != nil {
		abortWithProblem(ctx, http.StatusUnprocessableEntity, buildsdk.CodeBuildValidation, "invalid file path", *details)
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	b, ok := s.lookupBuild(ctx)
	if !ok {
		return
	}

	if f, exists := b.files[body.Path]; exists && f.pinned {
		ctx.PureJSON(http.StatusOK, buildsdk.FileUploadSlot{Path: body.Path, Uploaded: true})
		return
	}

	if s.getFaults().OmitSignedURL {
		ctx.PureJSON(http.StatusOK, buildsdk.FileUploadSlot{Path: body.Path})
		return
	}

	f, exists := b.files[body.Path]
	if !exists {
		f = &fileState{meta: buildsdk.BuildFile{Path: body.Path}}
		b.files[body.Path] = f
	}
	if f.token != "" {
		delete(s.store.uploads, f.token)
	}
	f.token = uuid.NewString()
	f.uploaded = false
	s.store.uploads[f.token] = f

	ctx.PureJSON(http.StatusCreated, buildsdk.FileUploadSlot{
		Path:      body.Path,
		SignedURL: signedURL(ctx, f.token),
	})
}

func signedURL(ctx *gin.Context, token string) string {
	scheme := "http"
	if ctx.Request.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/uploads/%s", scheme, ctx.Request.Host, token)
}

func validatePath(path string) *buildsdk.ValidationDetail {
	var msgs []string
	switch {
	case path == "":
		msgs = append(msgs, "must not be empty")
	case strings.HasPrefix(path, "/"):
		msgs = append(msgs, "must be relative")
	}
	if strings.Contains(path, `\`) {
		msgs = append(msgs, "must use forward slashes")
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			msgs = append(msgs, "must not contain '..' segments")
			break
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return &buildsdk.ValidationDetail{Field: "path", Messages: msgs}
}

func (s *Server) handleUpload(ctx *gin.Context) {
	s.uploads.Add(1)

	if status := s.getFaults().RejectUploadsStatus; status != 0 {
		body := http.StatusText(status)
		if status == http.StatusForbidden {
			body = "<Error><Code>AccessDenied</Code><Message>Request has expired</Message></Error>"
		}
		ctx.Data(status, "application/xml", []byte(body))
		return
	}

	if ctx.Request.ContentLength < 0 {
		ctx.Data(http.StatusLengthRequired, "text/plain", []byte("MissingContentLength"))
		return
	}
	if ctx.Request.ContentLength > maxUploadSize {
		ctx.Data(http.StatusRequestEntityTooLarge, "text/plain", []byte("EntityTooLarge"))
		return
	}

	content, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxUploadSize))
	if err != nil {
		ctx.Data(http.StatusBadRequest, "text/plain", []byte(err.Error()))
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	token := ctx.Param("token")
	f, ok := s.store.uploads[token]
	if !ok {
		ctx.Data(http.StatusNotFound, "application/xml", []byte("<Error><Code>NoSuchUpload</Code></Error>"))
		return
	}
	delete(s.store.uploads, token)

	f.content = content
	f.token = ""
	f.uploaded = true
	f.meta.FileSize = int64(len(content))
	f.meta.Hash = contentHash(content)
	f.meta.LastModified = now()

	ctx.Status(http.StatusOK)
}

func (s *Server) handleListFiles(ctx *gin.Context) {
	s.lists.Add(1)

	limit, err := queryInt(ctx, "limit", defaultPageLimit)
	if err != nil || limit <= 0 || limit > maxPageLimit {
		abortWithProblem(ctx, http.StatusBadRequest, buildsdk.CodeInvalidRequest, fmt.Sprintf("limit must be between 1 and %d", maxPageLimit))
		return
	}
	offset, err := queryInt(ctx, "offset", 0)
	if err != nil || offset < 0 {
		abortWithProblem(ctx, http.StatusBadRequest, buildsdk.CodeInvalidRequest, "offset must be a non-negative integer")
		return
	}

	if s.getFaults().ListConflict {
		abortWithProblem(ctx, http.StatusConflict, buildsdk.CodeBuildNotListable, "build files are not listable yet")
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	b, ok := s.lookupBuild(ctx)
	if !ok {
		return
	}

	// only files whose content arrived are visible
	var visible []string
	for _, p := range b.sortedPaths() {
		if b.files[p].uploaded {
			visible = append(visible, p)
		}
	}

	page := buildsdk.FileList{Limit: limit, Offset: offset, Results: []*buildsdk.BuildFile{}}
	for i := offset; i < len(visible) && i < offset+limit; i++ {
		meta := b.files[visible[i]].meta
		page.Results = append(page.Results, &meta)
	}

	ctx.PureJSON(http.StatusOK, page)
}

func queryInt(ctx *gin.Context, key string, def int) (int, error) {
	raw := ctx.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func (s *Server) handleDeleteFile(ctx *gin.Context) {
	s.deletes.Add(1)

	path := ctx.Query("path")
	if path == "" {
		abortWithProblem(ctx, http.StatusBadRequest, buildsdk.CodeInvalidRequest, "path query parameter is required")
		return
	}

	if s.getFaults().FailDeletes {
		abortWithProblem(ctx, http.StatusInternalServerError, buildsdk.CodeInternalError, "delete failed")
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	b, ok := s.lookupBuild(ctx)
	if !ok {
		return
	}

	f, exists := b.files[path]
	if !exists {
		abortWithProblem(ctx, http.StatusNotFound, buildsdk.CodeInvalidRequest, "file not found: "+path)
		return
	}
	if f.token != "" {
		delete(s.store.uploads, f.token)
	}
	delete(b.files, path)

	ctx.Status(http.StatusNoContent)
}

func (s *Server) handleCreateVersion(ctx *gin.Context) {
	s.commits.Add(1)

	var body buildsdk.CreateVersionRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		abortWithProblem(ctx, http.StatusBadRequest, buildsdk.CodeInvalidRequest, err.Error())
		return
	}

	if details := validateVersion(&body); len(details) > 0 || s.getFaults().CommitValidation {
		if len(details) == 0 {
			details = []buildsdk.ValidationDetail{{Field: "buildVersionName", Messages: []string{"is rejected by the server"}}}
		}
		abortWithProblem(ctx, http.StatusUnprocessableEntity, buildsdk.CodeBuildValidation, "build version is invalid", details...)
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	b, ok := s.lookupBuild(ctx)
	if !ok {
		return
	}

	if s.consumeCommitFault() {
		abortWithProblem(ctx, http.StatusBadRequest, buildsdk.CodeBuildNotConsistent, "uploaded files are not yet visible")
		return
	}
	if pending := b.pending(); len(pending) > 0 {
		abortWithProblem(ctx, http.StatusBadRequest, buildsdk.CodeBuildNotConsistent,
			fmt.Sprintf("%d files have an upload slot but no content", len(pending)))
		return
	}

	v := &buildsdk.BuildVersion{
		BuildID:   b.build.ID,
		Name:      body.Name,
		Created:   now(),
		FileCount: len(b.files),
	}
	b.versions = append(b.versions, v)
	b.build.Updated = v.Created

	ctx.PureJSON(http.StatusCreated, v)
}

func validateVersion(req *buildsdk.CreateVersionRequest) []buildsdk.ValidationDetail {
	var details []buildsdk.ValidationDetail

	if strings.TrimSpace(req.Name) == "" {
		details = append(details, buildsdk.ValidationDetail{Field: "buildVersionName", Messages: []string{"must not be empty"}})
	}

	sources := 0
	for _, set := range []bool{req.Container != nil, req.CCD != nil, req.S3 != nil, req.GCS != nil} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		details = append(details, buildsdk.ValidationDetail{Field: "source", Messages: []string{"exactly one source must be set"}})
	}

	return details
}
