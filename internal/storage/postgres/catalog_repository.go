package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MatYouKy/mavinci-reserve/internal/app"
	"github.com/MatYouKy/mavinci-reserve/internal/domain"
)

type CatalogRepository struct {
	pool  *pgxpool.Pool
	items *ReservationRepository
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool, items: NewReservationRepository(pool)}
}

func (r *CatalogRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *CatalogRepository) CreateItem(ctx context.Context, item domain.EquipmentItem) error {
	const stmt = `
INSERT INTO equipment_items (id, name, brand, model, total_quantity, is_cable, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.exec(ctx, stmt,
		item.ID, item.Name, item.Brand, item.Model,
		item.TotalQuantity, item.IsCable, item.IsActive, item.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

func (r *CatalogRepository) GetItem(ctx context.Context, itemID string) (domain.EquipmentItem, error) {
	return r.items.GetItem(ctx, itemID)
}

func (r *CatalogRepository) GetItems(ctx context.Context, itemIDs []string) ([]domain.EquipmentItem, error) {
	return r.items.GetItems(ctx, itemIDs)
}

func (r *CatalogRepository) GetItemsForUpdate(ctx context.Context, itemIDs []string) ([]domain.EquipmentItem, error) {
	return r.items.GetItemsForUpdate(ctx, itemIDs)
}

func (r *CatalogRepository) UpdateItemStock(ctx context.Context, itemID string, totalQuantity int) error {
	const stmt = `UPDATE equipment_items SET total_quantity = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, itemID, totalQuantity)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update item stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *CatalogRepository) SetItemActive(ctx context.Context, itemID string, active bool) error {
	const stmt = `UPDATE equipment_items SET is_active = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, itemID, active)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set item active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *CatalogRepository) ListItems(ctx context.Context, filter app.ItemFilter) ([]domain.EquipmentItem, error) {
	const query = `
SELECT id, name, brand, model, total_quantity, is_cable, is_active, created_at
FROM equipment_items
WHERE ($1::boolean OR is_cable = FALSE)
  AND ($2::boolean OR is_active = TRUE)
ORDER BY created_at ASC`

	rows, err := r.query(ctx, query, filter.IncludeCables, filter.IncludeInactive)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
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
		return nil, fmt.Errorf("iterate items: %w", rows.Err())
	}
	return items, nil
}

// CreateKit inserts the kit row and its components in one transaction.
func (r *CatalogRepository) CreateKit(ctx context.Context, kit domain.EquipmentKit) error {
	return withTx(ctx, r.pool, func(txCtx context.Context) error {
		const kitStmt = `
INSERT INTO equipment_kits (id, name, description, is_active, created_at)
VALUES ($1, $2, $3, $4, $5)`

		if _, err := r.exec(txCtx, kitStmt, kit.ID, kit.Name, kit.Description, kit.IsActive, kit.CreatedAt); err != nil {
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			return fmt.Errorf("create kit: %w", err)
		}

		const componentStmt = `
INSERT INTO kit_components (kit_id, item_id, quantity, position)
VALUES ($1, $2, $3, $4)`

		for i, c := range kit.Components {
			if _, err := r.exec(txCtx, componentStmt, kit.ID, c.ItemID, c.Quantity, i); err != nil {
				if isForeignKeyViolation(err) {
					return domain.ErrItemNotFound
				}
				if isUniqueViolation(err) {
					return domain.ErrDuplicateComponent
				}
				return fmt.Errorf("create kit component: %w", err)
			}
		}
		return nil
	})
}

func (r *CatalogRepository) GetKit(ctx context.Context, kitID string) (domain.EquipmentKit, error) {
	return r.items.GetKit(ctx, kitID)
}

func (r *CatalogRepository) SetKitActive(ctx context.Context, kitID string, active bool) error {
	const stmt = `UPDATE equipment_kits SET is_active = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, kitID, active)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set kit active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrKitNotFound
	}
	return nil
}

func (r *CatalogRepository) ListKits(ctx context.Context, includeInactive bool) ([]domain.EquipmentKit, error) {
	const query = `
SELECT id, name, description, is_active, created_at
FROM equipment_kits
WHERE ($1::boolean OR is_active = TRUE)
ORDER BY created_at ASC`

	rows, err := r.query(ctx, query, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list kits: %w", err)
	}
	defer rows.Close()

	var kits []domain.EquipmentKit
	for rows.Next() {
		var kit domain.EquipmentKit
		if err := rows.Scan(&kit.ID, &kit.Name, &kit.Description, &kit.IsActive, &kit.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan kit: %w", err)
		}
		kits = append(kits, kit)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate kits: %w", rows.Err())
	}

	if len(kits) == 0 {
		return kits, nil
	}

	const componentsQuery = `
SELECT kit_id, item_id, quantity
FROM kit_components
ORDER BY kit_id, position ASC`

	crows, err := r.query(ctx, componentsQuery)
	if err != nil {
		return nil, fmt.Errorf("list kit components: %w", err)
	}
	defer crows.Close()

	byKit := make(map[string][]domain.KitComponent)
	for crows.Next() {
		var kitID string
		var c domain.KitComponent
		if err := crows.Scan(&kitID, &c.ItemID, &c.Quantity); err != nil {
			return nil, fmt.Errorf("scan kit component: %w", err)
		}
		byKit[kitID] = append(byKit[kitID], c)
	}
	if crows.Err() != nil {
		return nil, fmt.Errorf("iterate kit components: %w", crows.Err())
	}
	for i := range kits {
		kits[i].Components = byKit[kits[i].ID]
	}
	return kits, nil
}

func (r *CatalogRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *CatalogRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
