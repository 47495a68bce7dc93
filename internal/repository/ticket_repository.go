package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketFilter captures listing parameters; each set field is an
// exact-match predicate ANDed with the rest.
type TicketFilter struct {
	RequesterID *string
	AssigneeID  *string
	Department  *string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketMutator is invoked with the row-locked ticket. It adjusts the
// ticket in place and returns system messages to append in the same
// transaction. Returning an error rolls everything back.
type TicketMutator func(ticket *domain.Ticket) ([]domain.ChatMessage, error)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// Create inserts the ticket together with its opening system message
	// in one transaction.
	Create(ctx context.Context, ticket *domain.Ticket, opening *domain.ChatMessage) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// Mutate serializes writes per ticket: it re-reads the row under
	// SELECT ... FOR UPDATE, applies fn, persists the result plus any
	// synthesized messages, and commits atomically.
	Mutate(ctx context.Context, id string, fn TicketMutator) (*domain.Ticket, error)
	// MarkSLAViolated persists the sticky violation flag observed on a
	// read path.
	MarkSLAViolated(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, department, status, priority, observations,
               requester_id, assignee_id, created_at, updated_at, resolved_at, closed_at,
               sla_deadline, sla_violated`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, opening *domain.ChatMessage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO tickets (title, description, department, status, priority, observations,
            requester_id, assignee_id, created_at, updated_at, sla_deadline, sla_violated)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9,$10,$11)
        RETURNING id`
	if err := tx.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Department,
		ticket.Status,
		ticket.Priority,
		ticket.Observations,
		ticket.RequesterID,
		ticket.AssigneeID,
		ticket.CreatedAt,
		ticket.SLADeadline,
		ticket.SLAViolated,
	).Scan(&ticket.ID); err != nil {
		return err
	}
	ticket.UpdatedAt = ticket.CreatedAt

	if opening != nil {
		opening.TicketID = ticket.ID
		if err := insertMessage(ctx, tx, opening); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.RequesterID != nil {
		add("requester_id=$%d", *filter.RequesterID)
	}
	if filter.AssigneeID != nil {
		add("assignee_id=$%d", *filter.AssigneeID)
	}
	if filter.Department != nil {
		add("department=$%d", *filter.Department)
	}
	if filter.Status != nil {
		add("status=$%d", *filter.Status)
	}
	if filter.Priority != nil {
		add("priority=$%d", *filter.Priority)
	}
	if filter.CreatedFrom != nil {
		add("created_at >= $%d", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		add("created_at <= $%d", *filter.CreatedTo)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Mutate(ctx context.Context, id string, fn TicketMutator) (*domain.Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	var ticket domain.Ticket
	if err := scanTicket(tx.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}

	messages, err := fn(&ticket)
	if err != nil {
		return nil, err
	}

	const update = `
        UPDATE tickets SET title=$1, description=$2, department=$3, status=$4, priority=$5,
            observations=$6, assignee_id=$7, resolved_at=$8, closed_at=$9,
            sla_deadline=$10, sla_violated=$11, updated_at=NOW()
        WHERE id=$12
        RETURNING updated_at`
	if err := tx.QueryRow(ctx, update,
		ticket.Title,
		ticket.Description,
		ticket.Department,
		ticket.Status,
		ticket.Priority,
		ticket.Observations,
		ticket.AssigneeID,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.SLADeadline,
		ticket.SLAViolated,
		ticket.ID,
	).Scan(&ticket.UpdatedAt); err != nil {
		return nil, err
	}

	for i := range messages {
		messages[i].TicketID = ticket.ID
		if err := insertMessage(ctx, tx, &messages[i]); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) MarkSLAViolated(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE tickets SET sla_violated=TRUE WHERE id=$1`, id)
	return err
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Department,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Observations,
		&ticket.RequesterID,
		&ticket.AssigneeID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.SLADeadline,
		&ticket.SLAViolated,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
