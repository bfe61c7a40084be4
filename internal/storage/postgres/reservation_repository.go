package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MatYouKy/mavinci-reserve/internal/app"
	"github.com/MatYouKy/mavinci-reserve/internal/domain"
)

type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *ReservationRepository) GetItem(ctx context.Context, itemID string) (domain.EquipmentItem, error) {
	const query = `
SELECT id, name, brand, model, total_quantity, is_cable, is_active, created_at
FROM equipment_items
WHERE id = $1`

	var item domain.EquipmentItem
	err := r.queryRow(ctx, query, itemID).Scan(
		&item.ID, &item.Name, &item.Brand, &item.Model,
		&item.TotalQuantity, &item.IsCable, &item.IsActive, &item.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.EquipmentItem{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.EquipmentItem{}, domain.ErrItemNotFound
		}
		return domain.EquipmentItem{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (r *ReservationRepository) GetItems(ctx context.Context, itemIDs []string) ([]domain.EquipmentItem, error) {
	const query = `
SELECT id, name, brand, model, total_quantity, is_cable, is_active, created_at
FROM equipment_items
WHERE id = ANY($1)
ORDER BY id ASC`
	return r.scanItems(ctx, query, itemIDs)
}

// GetItemsForUpdate locks the matching item rows. The ORDER BY id ASC inside a
// locking query fixes the acquisition order, so reservations with overlapping
// item sets cannot deadlock each other.
func (r *ReservationRepository) GetItemsForUpdate(ctx context.Context, itemIDs []string) ([]domain.EquipmentItem, error) {
	const query = `
SELECT id, name, brand, model, total_quantity, is_cable, is_active, created_at
FROM equipment_items
WHERE id = ANY($1)
ORDER BY id ASC
FOR UPDATE`
	return r.scanItems(ctx, query, itemIDs)
}

func (r *ReservationRepository) scanItems(ctx context.Context, query string, itemIDs []string) ([]domain.EquipmentItem, error) {
	rows, err := r.query(ctx, query, itemIDs)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("select items: %w", err)
	}
	defer rows.Close()

	var items []domain.EquipmentItem
	for rows.Next() {
		var item domain.EquipmentItem
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Brand, &item.Model,
			&item.TotalQuantity, &item.IsCable, &item.IsActive, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		if isInvalidUUID(rows.Err()) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate items: %w", rows.Err())
	}
	return items, nil
}

func (r *ReservationRepository) GetKit(ctx context.Context, kitID string) (domain.EquipmentKit, error) {
	const kitQuery = `
SELECT id, name, description, is_active, created_at
FROM equipment_kits
WHERE id = $1`

	var kit domain.EquipmentKit
	err := r.queryRow(ctx, kitQuery, kitID).Scan(
		&kit.ID, &kit.Name, &kit.Description, &kit.IsActive, &kit.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.EquipmentKit{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.EquipmentKit{}, domain.ErrKitNotFound
		}
		return domain.EquipmentKit{}, fmt.Errorf("get kit: %w", err)
	}

	const componentsQuery = `
SELECT item_id, quantity
FROM kit_components
WHERE kit_id = $1
ORDER BY position ASC`

	rows, err := r.query(ctx, componentsQuery, kitID)
	if err != nil {
		return domain.EquipmentKit{}, fmt.Errorf("kit components: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.KitComponent
		if err := rows.Scan(&c.ItemID, &c.Quantity); err != nil {
			return domain.EquipmentKit{}, fmt.Errorf("scan kit component: %w", err)
		}
		kit.Components = append(kit.Components, c)
	}
	if rows.Err() != nil {
		return domain.EquipmentKit{}, fmt.Errorf("iterate kit components: %w", rows.Err())
	}
	return kit, nil
}

// SumReservedQuantities aggregates active, non-tentative reservation lines
// overlapping the interval, per item. The overlap test is the half-open
// a.start < b.end AND b.start < a.end with NULL ends treated as +infinity.
func (r *ReservationRepository) SumReservedQuantities(ctx context.Context, itemIDs []string, interval domain.Interval, filter app.SumFilter) (map[string]int, error) {
	const query = `
SELECT rl.item_id, COALESCE(SUM(rl.quantity), 0)
FROM reservation_lines rl
JOIN reservations res ON res.id = rl.reservation_id
WHERE rl.item_id = ANY($1)
  AND res.status = 'active'
  AND res.tentative = FALSE
  AND res.starts_at < COALESCE($3::timestamptz, 'infinity'::timestamptz)
  AND $2::timestamptz < COALESCE(res.ends_at, 'infinity'::timestamptz)
  AND ($4::uuid IS NULL OR res.id <> $4::uuid)
  AND (NOT $5::boolean OR res.is_optional = FALSE)
GROUP BY rl.item_id`

	var exclude *string
	if filter.ExcludeReservationID != "" {
		exclude = &filter.ExcludeReservationID
	}

	rows, err := r.query(ctx, query, itemIDs, interval.Start, interval.End, exclude, filter.IgnoreOptional)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("sum reserved quantities: %w", err)
	}
	defer rows.Close()

	sums := make(map[string]int, len(itemIDs))
	for rows.Next() {
		var itemID string
		var total int
		if err := rows.Scan(&itemID, &total); err != nil {
			return nil, fmt.Errorf("scan reserved sum: %w", err)
		}
		sums[itemID] = total
	}
	if rows.Err() != nil {
		if isInvalidUUID(rows.Err()) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate reserved sums: %w", rows.Err())
	}
	return sums, nil
}

func (r *ReservationRepository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (id, consumer_type, consumer_id, target_type, target_id, quantity,
	starts_at, ends_at, is_optional, tentative, status, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.exec(ctx, stmt,
		res.ID, res.ConsumerType, res.ConsumerID, res.TargetType, res.TargetID,
		res.Quantity, res.Interval.Start, res.Interval.End,
		res.IsOptional, res.Tentative, res.Status, res.Notes, res.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrItemNotFound
		}
		return fmt.Errorf("create reservation: %w", err)
	}

	return r.insertLines(ctx, res.ID, res.Lines)
}

func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	const query = `
SELECT id, consumer_type, consumer_id, target_type, target_id, quantity,
	starts_at, ends_at, is_optional, tentative, status, notes, created_at, cancelled_at
FROM reservations
WHERE id = $1`
	return r.scanReservation(ctx, query, id)
}

func (r *ReservationRepository) GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error) {
	const query = `
SELECT id, consumer_type, consumer_id, target_type, target_id, quantity,
	starts_at, ends_at, is_optional, tentative, status, notes, created_at, cancelled_at
FROM reservations
WHERE id = $1
FOR UPDATE`
	return r.scanReservation(ctx, query, id)
}

func (r *ReservationRepository) scanReservation(ctx context.Context, query, id string) (domain.Reservation, error) {
	var res domain.Reservation
	err := r.queryRow(ctx, query, id).Scan(
		&res.ID, &res.ConsumerType, &res.ConsumerID, &res.TargetType, &res.TargetID,
		&res.Quantity, &res.Interval.Start, &res.Interval.End,
		&res.IsOptional, &res.Tentative, &res.Status, &res.Notes,
		&res.CreatedAt, &res.CancelledAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}

	lines, err := r.linesFor(ctx, []string{res.ID})
	if err != nil {
		return domain.Reservation{}, err
	}
	res.Lines = lines[res.ID]
	return res, nil
}

func (r *ReservationRepository) UpdateReservation(ctx context.Context, res domain.Reservation) error {
	const stmt = `
UPDATE reservations
SET quantity = $2, starts_at = $3, ends_at = $4
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, res.ID, res.Quantity, res.Interval.Start, res.Interval.End)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}

	if _, err := r.exec(ctx, `DELETE FROM reservation_lines WHERE reservation_id = $1`, res.ID); err != nil {
		return fmt.Errorf("delete reservation lines: %w", err)
	}
	return r.insertLines(ctx, res.ID, res.Lines)
}

func (r *ReservationRepository) CancelReservation(ctx context.Context, id string, at time.Time) (bool, error) {
	const stmt = `
UPDATE reservations
SET status = 'cancelled', cancelled_at = $2
WHERE id = $1 AND status = 'active'`

	tag, err := r.exec(ctx, stmt, id, at)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("cancel reservation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ReservationRepository) ListReservationsByConsumer(ctx context.Context, ct domain.ConsumerType, consumerID string) ([]domain.Reservation, error) {
	const query = `
SELECT id, consumer_type, consumer_id, target_type, target_id, quantity,
	starts_at, ends_at, is_optional, tentative, status, notes, created_at, cancelled_at
FROM reservations
WHERE consumer_type = $1 AND consumer_id = $2
ORDER BY created_at ASC`

	rows, err := r.query(ctx, query, ct, consumerID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []domain.Reservation
	var ids []string
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(
			&res.ID, &res.ConsumerType, &res.ConsumerID, &res.TargetType, &res.TargetID,
			&res.Quantity, &res.Interval.Start, &res.Interval.End,
			&res.IsOptional, &res.Tentative, &res.Status, &res.Notes,
			&res.CreatedAt, &res.CancelledAt,
		); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, res)
		ids = append(ids, res.ID)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate reservations: %w", rows.Err())
	}

	if len(ids) == 0 {
		return reservations, nil
	}
	lines, err := r.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range reservations {
		reservations[i].Lines = lines[reservations[i].ID]
	}
	return reservations, nil
}

func (r *ReservationRepository) insertLines(ctx context.Context, reservationID string, lines []domain.ReservationLine) error {
	const stmt = `
INSERT INTO reservation_lines (reservation_id, item_id, quantity)
VALUES ($1, $2, $3)`

	for _, line := range lines {
		if _, err := r.exec(ctx, stmt, reservationID, line.ItemID, line.Quantity); err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrItemNotFound
			}
			return fmt.Errorf("insert reservation line: %w", err)
		}
	}
	return nil
}

func (r *ReservationRepository) linesFor(ctx context.Context, reservationIDs []string) (map[string][]domain.ReservationLine, error) {
	const query = `
SELECT reservation_id, item_id, quantity
FROM reservation_lines
WHERE reservation_id = ANY($1)
ORDER BY item_id ASC`

	rows, err := r.query(ctx, query, reservationIDs)
	if err != nil {
		return nil, fmt.Errorf("reservation lines: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.ReservationLine, len(reservationIDs))
	for rows.Next() {
		var resID string
		var line domain.ReservationLine
		if err := rows.Scan(&resID, &line.ItemID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scan reservation line: %w", err)
		}
		out[resID] = append(out[resID], line)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate reservation lines: %w", rows.Err())
	}
	return out, nil
}

func (r *ReservationRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ReservationRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *ReservationRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
