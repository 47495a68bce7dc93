package service

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/access"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AttachmentService validates uploads, stores the bytes in the blob
// store and the metadata in Postgres, and narrates the upload into the
// ticket thread.
type AttachmentService struct {
	tickets     repository.TicketRepository
	attachments repository.AttachmentRepository
	messages    repository.ChatMessageRepository
	blobs       storage.BlobStore
	dispatcher  events.Dispatcher
	upload      config.UploadConfig
}

// NewAttachmentService constructs the service.
func NewAttachmentService(
	tickets repository.TicketRepository,
	attachments repository.AttachmentRepository,
	messages repository.ChatMessageRepository,
	blobs storage.BlobStore,
	dispatcher events.Dispatcher,
	upload config.UploadConfig,
) *AttachmentService {
	return &AttachmentService{
		tickets:     tickets,
		attachments: attachments,
		messages:    messages,
		blobs:       blobs,
		dispatcher:  dispatcher,
		upload:      upload,
	}
}

// Upload stores the file under a server-generated name. The original
// name survives only as metadata, so a hostile filename never touches
// the filesystem.
func (s *AttachmentService) Upload(ctx context.Context, actor *domain.User, ticketID, originalName, mimeType string, r io.Reader) (*domain.Attachment, error) {
	ticket, err := s.loadVisible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
	if !s.extensionAllowed(ext) {
		return nil, apperrors.NewValidationError("file type not allowed", map[string]any{"extension": ext})
	}

	storedName := uuid.NewString()
	if ext != "" {
		storedName += "." + ext
	}

	size, err := s.blobs.Save(ctx, storedName, r)
	if err != nil {
		return nil, apperrors.NewStorageError("unable to store attachment", err)
	}

	attachment := &domain.Attachment{
		TicketID:     ticket.ID,
		UploadedByID: actor.ID,
		StoredName:   storedName,
		OriginalName: originalName,
		MimeType:     mimeType,
		SizeBytes:    size,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		return nil, err
	}

	note := &domain.ChatMessage{
		TicketID: ticket.ID,
		AuthorID: actor.ID,
		Content:  "File attached: " + originalName,
		Kind:     domain.MessageKindAttachment,
	}
	if err := s.messages.Create(ctx, note); err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventAttachmentUploaded,
			TicketID:  ticket.ID,
			ActorID:   actor.ID,
			Timestamp: time.Now(),
			Payload: events.AttachmentUploadedPayload{
				AttachmentID: attachment.ID,
				OriginalName: attachment.OriginalName,
				SizeBytes:    attachment.SizeBytes,
			},
		})
	}
	return attachment, nil
}

// List returns attachment metadata for a visible ticket.
func (s *AttachmentService) List(ctx context.Context, actor *domain.User, ticketID string) ([]domain.Attachment, error) {
	if _, err := s.loadVisible(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	return s.attachments.ListByTicket(ctx, ticketID)
}

// Download opens the blob for an attachment addressed through its
// ticket. Metadata pointing at a missing blob reports not found rather
// than a server error.
func (s *AttachmentService) Download(ctx context.Context, actor *domain.User, ticketID, attachmentID string) (*domain.Attachment, io.ReadCloser, error) {
	if _, err := s.loadVisible(ctx, actor, ticketID); err != nil {
		return nil, nil, err
	}

	attachment, err := s.getAttachment(ctx, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	if attachment.TicketID != ticketID {
		return nil, nil, apperrors.NewNotFound("attachment", nil)
	}
	return s.openBlob(ctx, attachment)
}

// DownloadByID addresses the attachment directly; access is checked
// against the owning ticket.
func (s *AttachmentService) DownloadByID(ctx context.Context, actor *domain.User, attachmentID string) (*domain.Attachment, io.ReadCloser, error) {
	attachment, err := s.getAttachment(ctx, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.loadVisible(ctx, actor, attachment.TicketID); err != nil {
		return nil, nil, err
	}
	return s.openBlob(ctx, attachment)
}

func (s *AttachmentService) getAttachment(ctx context.Context, id string) (*domain.Attachment, error) {
	attachment, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("attachment", nil)
		}
		return nil, err
	}
	return attachment, nil
}

func (s *AttachmentService) openBlob(ctx context.Context, attachment *domain.Attachment) (*domain.Attachment, io.ReadCloser, error) {
	exists, err := s.blobs.Exists(ctx, attachment.StoredName)
	if err != nil {
		return nil, nil, apperrors.NewStorageError("unable to read attachment", err)
	}
	if !exists {
		return nil, nil, apperrors.NewNotFound("attachment file", nil)
	}

	reader, err := s.blobs.Open(ctx, attachment.StoredName)
	if err != nil {
		return nil, nil, apperrors.NewStorageError("unable to read attachment", err)
	}
	return attachment, reader, nil
}

func (s *AttachmentService) extensionAllowed(ext string) bool {
	if ext == "" {
		return false
	}
	for _, allowed := range s.upload.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (s *AttachmentService) loadVisible(ctx context.Context, user *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, err
	}
	if !access.CanView(user, ticket) {
		return nil, apperrors.NewForbidden("ticket access not permitted")
	}
	return ticket, nil
}
