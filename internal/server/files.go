package server

import (
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/storage"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/translator"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

func (s *Server) handleUploadFile(c echo.Context) error {
	var req translator.UploadRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}
	return s.upload(c, req)
}

func (s *Server) handleUploadJSON(c echo.Context) error {
	var body translator.UploadJSONRequest
	if err := decodeRequestBody(c, &body); err != nil {
		return err
	}
	req, err := body.Upload()
	if err != nil {
		return badRequest("%v", err)
	}
	return s.upload(c, req)
}

func (s *Server) upload(c echo.Context, req translator.UploadRequest) error {
	if err := req.Normalize(); err != nil {
		return badRequest("%v", err)
	}
	data, err := req.Data()
	if err != nil {
		return badRequest("%v", err)
	}

	name := req.Name(s.now().UTC(), uuid.NewString()[:8])
	stored, err := s.deps.Files.Put(c.Request().Context(), storage.Object{
		Data:        data,
		ContentType: models.ContentTypeFor(name),
		Category:    s.cfg.Storage.UploadCategory,
		Project:     s.cfg.Storage.DefaultProject,
		Tool:        req.FileType,
		Filename:    name,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, translator.UploadResponse{
		Success:     true,
		S3URL:       stored.URL,
		ExpiringURL: stored.ExpiringURL,
		Key:         stored.Key,
		Size:        stored.Size,
		Message:     "File uploaded successfully",
	})
}

type fileList struct {
	Success bool                 `json:"success"`
	Files   []storage.ObjectInfo `json:"files"`
	Count   int                  `json:"count"`
}

func newFileList(files []storage.ObjectInfo) fileList {
	if files == nil {
		files = []storage.ObjectInfo{}
	}
	return fileList{Success: true, Files: files, Count: len(files)}
}

func (s *Server) handleListFiles(c echo.Context) error {
	limit, err := listLimit(c.QueryParam("limit"))
	if err != nil {
		return err
	}

	prefix := s.cfg.Storage.UploadCategory + "/" + s.cfg.Storage.DefaultProject + "/"
	if ft := strings.ToLower(strings.TrimSpace(c.QueryParam("file_type"))); ft != "" {
		if !validSegment(ft) {
			return badRequest("invalid file_type %q", ft)
		}
		// Uploads store the type the same way.
		prefix += storage.Segment(ft) + "/"
	}

	files, err := s.deps.Files.List(c.Request().Context(), prefix, limit)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, newFileList(files))
}

func (s *Server) handleProjectFiles(c echo.Context) error {
	project := c.Param("project")
	if !validSegment(project) {
		return badRequest("invalid project %q", project)
	}
	limit, err := listLimit(c.QueryParam("limit"))
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	var files []storage.ObjectInfo
	for _, category := range s.categories() {
		found, err := s.deps.Files.List(ctx, category+"/"+project+"/", limit)
		if err != nil {
			return toHTTPError(err)
		}
		files = append(files, found...)
	}

	sort.SliceStable(files, func(i, j int) bool { return files[i].LastModified.After(files[j].LastModified) })
	if len(files) > limit {
		files = files[:limit]
	}
	return c.JSON(http.StatusOK, newFileList(files))
}

func (s *Server) categories() []string {
	out := []string{s.cfg.Storage.ArtifactCategory}
	if s.cfg.Storage.UploadCategory != s.cfg.Storage.ArtifactCategory {
		out = append(out, s.cfg.Storage.UploadCategory)
	}
	return out
}

func (s *Server) handleDeleteFile(c echo.Context) error {
	target := strings.TrimSpace(c.QueryParam("s3_url"))
	if target == "" {
		target = strings.TrimSpace(c.QueryParam("key"))
	}
	if target == "" {
		return badRequest("s3_url or key query parameter is required")
	}

	key, err := s.deps.Files.Delete(c.Request().Context(), target)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"key":     key,
		"message": "File deleted successfully",
	})
}

func listLimit(raw string) (int, error) {
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxListLimit {
		return 0, badRequest("limit must be an integer within [1, %d]", maxListLimit)
	}
	return n, nil
}

// validSegment accepts a single key path segment.
func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`) && path.Clean(s) == s
}
