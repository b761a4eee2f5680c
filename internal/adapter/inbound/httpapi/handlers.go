package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/anthanhphan/gosdk/logger"
	"github.com/gofiber/fiber/v2"

	"github.com/collectfs/collectfs/internal/domain"
	"github.com/collectfs/collectfs/internal/port"
	"github.com/collectfs/collectfs/internal/service"
)

// maxFieldBytes caps scalar multipart fields so a hostile part cannot
// be streamed into memory as metadata.
const maxFieldBytes = 1024

// updateRequest is the PATCH body; nil fields are left unchanged.
type updateRequest struct {
	Name        *string `json:"name"`
	ContentType *string `json:"content_type"`
}

// fileResponse decorates a record with its derived replication state.
type fileResponse struct {
	*domain.FileRecord
	State domain.ReplicationState `json:"state"`
}

func newFileResponse(col port.FileCollection, record *domain.FileRecord) fileResponse {
	return fileResponse{FileRecord: record, State: record.State(col.Backends())}
}

func (s *Server) sendJSONError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

// sendDomainError maps collection errors onto HTTP statuses. Unknown
// errors are logged and reported as opaque internal failures.
func (s *Server) sendDomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrAuthorizationDenied):
		return s.sendJSONError(c, fiber.StatusForbidden, "Operation not authorized")
	case errors.Is(err, service.ErrAdmissionDenied):
		return s.sendJSONError(c, fiber.StatusUnprocessableEntity, "File rejected by collection rules")
	case errors.Is(err, port.ErrRecordNotFound):
		return s.sendJSONError(c, fiber.StatusNotFound, "File record not found")
	case errors.Is(err, service.ErrNoCopy):
		return s.sendJSONError(c, fiber.StatusConflict, "No backend holds a copy of the file yet")
	default:
		logger.Errorw("Request failed", "path", c.Path(), "error", err.Error())
		return s.sendJSONError(c, fiber.StatusInternalServerError, "Internal error")
	}
}

func (s *Server) collection(c *fiber.Ctx) (port.FileCollection, bool) {
	return s.resolver.Resolve(c.Params("collection"))
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "ok",
		"collections": s.resolver.Names(),
	})
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	col, ok := s.collection(c)
	if !ok {
		return s.sendJSONError(c, fiber.StatusNotFound, fmt.Sprintf("Unknown collection %q", c.Params("collection")))
	}

	contentType := c.Get(fiber.HeaderContentType)
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Content-Type must be multipart/form-data")
	}

	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Invalid Content-Type")
	}
	boundary, ok := params["boundary"]
	if !ok {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Missing boundary in Content-Type")
	}

	// Use raw request body stream
	bodyStream := c.Context().RequestBodyStream()
	if bodyStream == nil {
		bodyStream = bytes.NewReader(c.Body())
	}
	mr := multipart.NewReader(bodyStream, boundary)

	var info domain.FileInfo
	var src io.Reader

	// The body is consumed as a stream, so scalar fields only take
	// effect when the client sends them before the file part.
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return s.sendJSONError(c, fiber.StatusBadRequest, fmt.Sprintf("Failed to read multipart: %v", err))
		}

		if part.FileName() != "" {
			if info.Name == "" {
				info.Name = part.FileName()
			}
			if info.ContentType == "" {
				info.ContentType = part.Header.Get("Content-Type")
			}
			src = part
			break
		}

		if err := readUploadField(part, &info); err != nil {
			return s.sendJSONError(c, fiber.StatusBadRequest, err.Error())
		}
	}

	if src == nil {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Missing file part")
	}
	if info.Name == "" {
		return s.sendJSONError(c, fiber.StatusBadRequest, "File name is required")
	}

	record, err := col.Insert(requestCtx(c), info, src)
	if err != nil {
		return s.sendDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(newFileResponse(col, record))
}

// readUploadField folds one scalar form field into the candidate
// metadata. Unknown fields are skipped.
func readUploadField(part *multipart.Part, info *domain.FileInfo) error {
	defer part.Close()

	value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
	if err != nil {
		return fmt.Errorf("failed to read field %s: %v", part.FormName(), err)
	}

	switch part.FormName() {
	case "name":
		info.Name = string(value)
	case "content_type":
		info.ContentType = string(value)
	case "size":
		size, err := strconv.ParseInt(strings.TrimSpace(string(value)), 10, 64)
		if err != nil || size < 0 {
			return fmt.Errorf("invalid size field %q", string(value))
		}
		info.Size = size
	}
	return nil
}

func (s *Server) handleFind(c *fiber.Ctx) error {
	col, ok := s.collection(c)
	if !ok {
		return s.sendJSONError(c, fiber.StatusNotFound, fmt.Sprintf("Unknown collection %q", c.Params("collection")))
	}

	records, err := col.Find(requestCtx(c), selectorFromQuery(c.Queries()))
	if err != nil {
		return s.sendDomainError(c, err)
	}

	files := make([]fileResponse, 0, len(records))
	for _, record := range records {
		files = append(files, newFileResponse(col, record))
	}
	return c.JSON(fiber.Map{
		"files": files,
		"count": len(files),
	})
}

func (s *Server) handleMetadata(c *fiber.Ctx) error {
	col, ok := s.collection(c)
	if !ok {
		return s.sendJSONError(c, fiber.StatusNotFound, fmt.Sprintf("Unknown collection %q", c.Params("collection")))
	}

	record, err := col.FindID(requestCtx(c), c.Params("id"))
	if err != nil {
		return s.sendDomainError(c, err)
	}
	return c.JSON(newFileResponse(col, record))
}

func (s *Server) handleUpdate(c *fiber.Ctx) error {
	col, ok := s.collection(c)
	if !ok {
		return s.sendJSONError(c, fiber.StatusNotFound, fmt.Sprintf("Unknown collection %q", c.Params("collection")))
	}

	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Invalid JSON body")
	}
	if req.Name == nil && req.ContentType == nil {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Nothing to update")
	}

	record, err := col.Update(requestCtx(c), c.Params("id"), func(r *domain.FileRecord) error {
		if req.Name != nil {
			r.Name = *req.Name
		}
		if req.ContentType != nil {
			r.ContentType = *req.ContentType
		}
		return nil
	})
	if err != nil {
		return s.sendDomainError(c, err)
	}
	return c.JSON(newFileResponse(col, record))
}

func (s *Server) handleRemove(c *fiber.Ctx) error {
	col, ok := s.collection(c)
	if !ok {
		return s.sendJSONError(c, fiber.StatusNotFound, fmt.Sprintf("Unknown collection %q", c.Params("collection")))
	}

	removed, err := col.Remove(requestCtx(c), port.Selector{"id": c.Params("id")})
	if err != nil {
		return s.sendDomainError(c, err)
	}
	if removed == 0 {
		return s.sendJSONError(c, fiber.StatusNotFound, "File record not found")
	}
	return c.JSON(fiber.Map{"removed": removed})
}

func (s *Server) handleRemoveBySelector(c *fiber.Ctx) error {
	col, ok := s.collection(c)
	if !ok {
		return s.sendJSONError(c, fiber.StatusNotFound, fmt.Sprintf("Unknown collection %q", c.Params("collection")))
	}

	sel := selectorFromQuery(c.Queries())
	if len(sel) == 0 {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Removal requires at least one selector parameter")
	}

	removed, err := col.Remove(requestCtx(c), sel)
	if err != nil {
		return s.sendDomainError(c, err)
	}
	return c.JSON(fiber.Map{"removed": removed})
}

func (s *Server) handleDownload(c *fiber.Ctx) error {
	col, ok := s.collection(c)
	if !ok {
		return s.sendJSONError(c, fiber.StatusNotFound, fmt.Sprintf("Unknown collection %q", c.Params("collection")))
	}

	ctx := requestCtx(c)
	record, err := col.FindID(ctx, c.Params("id"))
	if err != nil {
		return s.sendDomainError(c, err)
	}

	contentType := record.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", record.Name))
	c.Set(fiber.HeaderContentType, contentType)

	if _, err := col.Download(ctx, record.ID, c.Response().BodyWriter()); err != nil {
		// Authorization and copy lookup fail before the first byte, so
		// those still map to a clean status.
		if errors.Is(err, service.ErrAuthorizationDenied) ||
			errors.Is(err, service.ErrNoCopy) ||
			errors.Is(err, port.ErrRecordNotFound) {
			return s.sendDomainError(c, err)
		}
		logger.Errorw("Download failed", "collection", col.Name(), "record_id", record.ID, "error", err.Error())
		return fmt.Errorf("download failed: %w", err)
	}
	return nil
}

// selectorFromQuery turns query parameters into a record selector.
// Size fields are compared numerically, everything else as strings.
func selectorFromQuery(query map[string]string) port.Selector {
	if len(query) == 0 {
		return nil
	}

	sel := make(port.Selector, len(query))
	for field, value := range query {
		if field == "size" || strings.HasSuffix(field, ".size") {
			if size, err := strconv.ParseInt(value, 10, 64); err == nil {
				sel[field] = size
				continue
			}
		}
		sel[field] = value
	}
	return sel
}
