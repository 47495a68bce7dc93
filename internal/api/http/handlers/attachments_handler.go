package handlers

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AttachmentsHandler serves uploads and downloads for ticket files.
type AttachmentsHandler struct {
	service *service.AttachmentService
	upload  config.UploadConfig
}

// NewAttachmentsHandler constructs handler.
func NewAttachmentsHandler(attachmentService *service.AttachmentService, upload config.UploadConfig) *AttachmentsHandler {
	return &AttachmentsHandler{service: attachmentService, upload: upload}
}

// Upload POST /api/tickets/:id/attachments. Expects a multipart form
// with the file under the "file" field.
func (h *AttachmentsHandler) Upload(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file field required", nil)
	}
	if fileHeader.Size > h.upload.MaxSizeBytes() {
		return apperrors.NewValidationError("file too large", map[string]any{
			"max_size_mb": h.upload.MaxSizeMB,
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewStorageError("unable to read upload", err)
	}
	defer file.Close()

	attachment, err := h.service.Upload(c.Context(), user, c.Params("id"),
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": attachmentResponse(attachment)})
}

// List GET /api/tickets/:id/attachments.
func (h *AttachmentsHandler) List(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	attachments, err := h.service.List(c.Context(), user, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.AttachmentResponse, 0, len(attachments))
	for i := range attachments {
		items = append(items, attachmentResponse(&attachments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Download GET /api/tickets/:id/attachments/:attachmentID/download.
// Streams the blob with the original filename in the disposition.
func (h *AttachmentsHandler) Download(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	attachment, reader, err := h.service.Download(c.Context(), user, c.Params("id"), c.Params("attachmentID"))
	if err != nil {
		return err
	}
	return sendAttachment(c, attachment, reader)
}

// DownloadByID GET /api/attachments/:attachmentID/download. Same blob,
// addressed without the ticket segment.
func (h *AttachmentsHandler) DownloadByID(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	attachment, reader, err := h.service.DownloadByID(c.Context(), user, c.Params("attachmentID"))
	if err != nil {
		return err
	}
	return sendAttachment(c, attachment, reader)
}

func sendAttachment(c *fiber.Ctx, attachment *domain.Attachment, reader io.Reader) error {
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+attachment.OriginalName+`"`)
	if attachment.MimeType != "" {
		c.Set(fiber.HeaderContentType, attachment.MimeType)
	}
	return c.SendStream(reader, int(attachment.SizeBytes))
}

func attachmentResponse(attachment *domain.Attachment) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:           attachment.ID,
		TicketID:     attachment.TicketID,
		UploadedByID: attachment.UploadedByID,
		OriginalName: attachment.OriginalName,
		MimeType:     attachment.MimeType,
		SizeBytes:    attachment.SizeBytes,
		UploadedAt:   attachment.UploadedAt,
	}
}
