package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	GetByID(ctx context.Context, id string) (*domain.Attachment, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

const attachmentColumns = `id, ticket_id, uploaded_by, stored_name, original_name, mime_type, size_bytes, uploaded_at`

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO attachments (ticket_id, uploaded_by, stored_name, original_name, mime_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, uploaded_at`
	return r.pool.QueryRow(ctx, query,
		attachment.TicketID,
		attachment.UploadedByID,
		attachment.StoredName,
		attachment.OriginalName,
		attachment.MimeType,
		attachment.SizeBytes,
	).Scan(&attachment.ID, &attachment.UploadedAt)
}

func (r *attachmentRepository) GetByID(ctx context.Context, id string) (*domain.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE id=$1`
	var attachment domain.Attachment
	if err := scanAttachment(r.pool.QueryRow(ctx, query, id), &attachment); err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE ticket_id=$1 ORDER BY uploaded_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var attachment domain.Attachment
		if err := scanAttachment(rows, &attachment); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}

func scanAttachment(row pgx.Row, attachment *domain.Attachment) error {
	return row.Scan(
		&attachment.ID,
		&attachment.TicketID,
		&attachment.UploadedByID,
		&attachment.StoredName,
		&attachment.OriginalName,
		&attachment.MimeType,
		&attachment.SizeBytes,
		&attachment.UploadedAt,
	)
}
