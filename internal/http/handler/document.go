package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docvault/internal/http/middleware"
	"docvault/internal/model"
	"docvault/internal/service"
)

// uploadResponse is returned by POST /upload-document. Document is omitted
// when the file was stored but could not be registered.
type uploadResponse struct {
	Message  string          `json:"message"`
	FilePath string          `json:"filePath"`
	Document *model.Document `json:"document,omitempty"`
}

type renameDocumentRequest struct {
	FileName string `json:"fileName"`
}

// pathID returns the :id route param when it is a UUID.
func pathID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func invalidID(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
}

// pageParams parses optional limit and offset query parameters. A missing or
// zero limit lists everything.
func pageParams(c *fiber.Ctx) (limit, offset int, code string) {
	limit, err := strconv.Atoi(c.Query("limit", "0"))
	if err != nil || limit < 0 {
		return 0, 0, "INVALID_LIMIT"
	}
	offset, err = strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		return 0, 0, "INVALID_OFFSET"
	}
	return limit, offset, ""
}

// ListDocuments lists documents with their owners.
//
//	@Summary	List documents
//	@Tags		documents
//	@Produce	json
//	@Param		limit	query		int	false	"page size, 0 for all"
//	@Param		offset	query		int	false	"rows to skip"
//	@Success	200		{array}		model.Document
//	@Failure	400		{object}	errorPayload
//	@Failure	500		{object}	errorPayload
//	@Router		/documents [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, code := pageParams(c)
		if code != "" {
			return writeError(c, fiber.StatusBadRequest, code, "invalid pagination parameter")
		}
		docs, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(docs)
	}
}

// UploadDocument stores a PDF sent as multipart/form-data field "file".
//
//	@Summary	Upload a PDF
//	@Tags		documents
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		file	formData	file	true	"PDF, at most 2 MiB"
//	@Success	200		{object}	uploadResponse
//	@Failure	400		{object}	errorPayload
//	@Failure	500		{object}	errorPayload
//	@Router		/upload-document [post]
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in := service.UploadInput{}
		if uid, ok := middleware.AuthUserID(c); ok {
			in.OwnerID = &uid
		}

		// A missing field is reported by the service's validation.
		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer f.Close()
			in.Reader = f
			in.OriginalName = fh.Filename
			in.Size = fh.Size
		}

		res, err := svc.Upload(c.UserContext(), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(uploadResponse{
			Message:  "File uploaded successfully",
			FilePath: res.FilePath,
			Document: res.Document,
		})
	}
}

// GetDocument returns a document with its owner.
//
//	@Summary	Get a document
//	@Tags		documents
//	@Produce	json
//	@Param		id	path		string	true	"document id"
//	@Success	200	{object}	model.Document
//	@Failure	400	{object}	errorPayload
//	@Failure	404	{object}	errorPayload
//	@Router		/documents/{id} [get]
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		doc, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// RenameDocument updates a document's display name.
//
//	@Summary	Rename a document
//	@Tags		documents
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string					true	"document id"
//	@Param		body	body		renameDocumentRequest	true	"new name"
//	@Success	200		{object}	model.Document
//	@Failure	400		{object}	errorPayload
//	@Failure	404		{object}	errorPayload
//	@Router		/documents/{id} [put]
func RenameDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		var req renameDocumentRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		doc, err := svc.Rename(c.UserContext(), id, req.FileName)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DeleteDocument removes the stored file and the record.
//
//	@Summary	Delete a document
//	@Tags		documents
//	@Produce	json
//	@Param		id	path		string	true	"document id"
//	@Success	200	{object}	messagePayload
//	@Failure	404	{object}	errorPayload
//	@Router		/documents/{id} [delete]
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(messagePayload{Message: "Document deleted successfully"})
	}
}

// DownloadDocument streams the stored PDF.
//
//	@Summary	Download a document
//	@Tags		documents
//	@Produce	application/pdf
//	@Param		id	path	string	true	"document id"
//	@Success	200	{file}	binary
//	@Failure	404	{object}	errorPayload
//	@Router		/documents/{id}/file [get]
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		rc, doc, err := svc.Open(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		c.Attachment(doc.FileName)
		c.Type("pdf")
		// fasthttp closes rc once the body has been written.
		return c.SendStream(rc)
	}
}
