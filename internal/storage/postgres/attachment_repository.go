package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MatYouKy/mavinci-reserve/internal/domain"
)

type AttachmentRepository struct {
	pool *pgxpool.Pool
}

func NewAttachmentRepository(pool *pgxpool.Pool) *AttachmentRepository {
	return &AttachmentRepository{pool: pool}
}

func (r *AttachmentRepository) CreateAttachment(ctx context.Context, a domain.ProductEquipmentAttachment) error {
	const stmt = `
INSERT INTO product_attachments (id, product_id, item_id, kit_id, quantity, is_optional, notes, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt,
		a.ID, a.ProductID, nullable(a.ItemID), nullable(a.KitID),
		a.Quantity, a.IsOptional, a.Notes, a.Status, a.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrItemNotFound
		}
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

func (r *AttachmentRepository) GetAttachment(ctx context.Context, id string) (domain.ProductEquipmentAttachment, error) {
	const query = `
SELECT id, product_id, item_id, kit_id, quantity, is_optional, notes, status, reservation_id, created_at, released_at
FROM product_attachments
WHERE id = $1`

	a, err := scanAttachment(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ProductEquipmentAttachment{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.ProductEquipmentAttachment{}, domain.ErrAttachmentNotFound
		}
		return domain.ProductEquipmentAttachment{}, fmt.Errorf("get attachment: %w", err)
	}
	return a, nil
}

func (r *AttachmentRepository) ListAttachmentsByProduct(ctx context.Context, productID string) ([]domain.ProductEquipmentAttachment, error) {
	const query = `
SELECT id, product_id, item_id, kit_id, quantity, is_optional, notes, status, reservation_id, created_at, released_at
FROM product_attachments
WHERE product_id = $1
ORDER BY created_at ASC`

	rows, err := r.query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var attachments []domain.ProductEquipmentAttachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		attachments = append(attachments, a)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate attachments: %w", rows.Err())
	}
	return attachments, nil
}

func (r *AttachmentRepository) MarkReserved(ctx context.Context, id, reservationID string) error {
	const stmt = `
UPDATE product_attachments
SET status = 'reserved', reservation_id = $2
WHERE id = $1 AND status = 'unscheduled'`

	tag, err := r.exec(ctx, stmt, id, reservationID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("mark attachment reserved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttachmentNotFound
	}
	return nil
}

func (r *AttachmentRepository) MarkReleased(ctx context.Context, id string, at time.Time) error {
	const stmt = `
UPDATE product_attachments
SET status = 'released', released_at = $2
WHERE id = $1 AND status <> 'released'`

	tag, err := r.exec(ctx, stmt, id, at)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("mark attachment released: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttachmentNotFound
	}
	return nil
}

func scanAttachment(row pgx.Row) (domain.ProductEquipmentAttachment, error) {
	var a domain.ProductEquipmentAttachment
	var itemID, kitID, reservationID *string
	err := row.Scan(
		&a.ID, &a.ProductID, &itemID, &kitID, &a.Quantity,
		&a.IsOptional, &a.Notes, &a.Status, &reservationID,
		&a.CreatedAt, &a.ReleasedAt,
	)
	if err != nil {
		return domain.ProductEquipmentAttachment{}, err
	}
	if itemID != nil {
		a.ItemID = *itemID
	}
	if kitID != nil {
		a.KitID = *kitID
	}
	if reservationID != nil {
		a.ReservationID = *reservationID
	}
	return a, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *AttachmentRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *AttachmentRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *AttachmentRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
