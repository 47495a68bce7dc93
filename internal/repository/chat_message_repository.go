package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ChatMessageRepository manages the append-only conversation log.
type ChatMessageRepository interface {
	Create(ctx context.Context, msg *domain.ChatMessage) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ChatMessage, error)
}

type chatMessageRepository struct {
	pool *pgxpool.Pool
}

// NewChatMessageRepository builds repository.
func NewChatMessageRepository(pool *pgxpool.Pool) ChatMessageRepository {
	return &chatMessageRepository{pool: pool}
}

// messageExecutor is satisfied by both the pool and a transaction, so
// the ticket repository can append system messages inside its row-locked
// transaction through the same insert.
type messageExecutor interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertMessage(ctx context.Context, db messageExecutor, msg *domain.ChatMessage) error {
	const query = `
        INSERT INTO chat_messages (ticket_id, author_id, content, kind)
        VALUES ($1,$2,$3,$4)
        RETURNING id, seq, created_at`
	return db.QueryRow(ctx, query,
		msg.TicketID,
		msg.AuthorID,
		msg.Content,
		msg.Kind,
	).Scan(&msg.ID, &msg.Seq, &msg.CreatedAt)
}

func (r *chatMessageRepository) Create(ctx context.Context, msg *domain.ChatMessage) error {
	return insertMessage(ctx, r.pool, msg)
}

func (r *chatMessageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ChatMessage, error) {
	const query = `
        SELECT id, ticket_id, author_id, content, kind, seq, created_at
        FROM chat_messages WHERE ticket_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.AuthorID,
			&msg.Content,
			&msg.Kind,
			&msg.Seq,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
