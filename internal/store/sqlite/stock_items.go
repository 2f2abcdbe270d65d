package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cutflow/core/internal/errs"
	"github.com/cutflow/core/internal/store"
)

type stockItemsRepo struct{ db *DB }

func scanStockItem(scanner interface{ Scan(dest ...any) error }) (store.StockItem, error) {
	var it store.StockItem
	var stockType string
	var isFromWaste int
	if err := scanner.Scan(&it.ID, &it.TenantID, &it.Code, &it.Name, &it.MaterialTypeID, &it.Thickness, &stockType,
		&it.Length, &it.Width, &it.Height, &it.Quantity, &it.ReservedQty, &it.UnitPriceCents, &isFromWaste, &it.LocationID); err != nil {
		return store.StockItem{}, err
	}
	it.StockType = store.StockType(stockType)
	it.IsFromWaste = isFromWaste != 0
	return it, nil
}

const stockItemColumns = `id, tenant_id, code, name, material_type_id, thickness, stock_type,
	length, width, height, quantity, reserved_qty, unit_price_cents, is_from_waste, location_id`

func (r stockItemsRepo) CandidatesForMaterial(ctx context.Context, materialTypeID string, thickness float64, stockType store.StockType) ([]store.StockItem, error) {
	rows, err := r.db.txOrConn(ctx).QueryContext(ctx,
		`SELECT `+stockItemColumns+` FROM stock_items WHERE material_type_id = ? AND thickness = ? AND stock_type = ?`,
		materialTypeID, thickness, string(stockType))
	if err != nil {
		return nil, fmt.Errorf("list stock candidates: %w", err)
	}
	defer rows.Close()

	var out []store.StockItem
	for rows.Next() {
		it, err := scanStockItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r stockItemsRepo) GetByID(ctx context.Context, id string) (store.StockItem, error) {
	row := r.db.txOrConn(ctx).QueryRowContext(ctx, `SELECT `+stockItemColumns+` FROM stock_items WHERE id = ?`, id)
	it, err := scanStockItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.StockItem{}, errs.New(errs.NotFound, "stock item not found")
		}
		return store.StockItem{}, fmt.Errorf("get stock item: %w", err)
	}
	return it, nil
}

func (r stockItemsRepo) Reserve(ctx context.Context, id string, qty int) error {
	res, err := r.db.txOrConn(ctx).ExecContext(ctx, `UPDATE stock_items SET reserved_qty = reserved_qty + ? WHERE id = ?`, qty, id)
	if err != nil {
		return fmt.Errorf("reserve stock item: %w", err)
	}
	return requireRowAffected(res, errs.New(errs.NotFound, "stock item not found"))
}

func (r stockItemsRepo) Release(ctx context.Context, id string, qty int) error {
	res, err := r.db.txOrConn(ctx).ExecContext(ctx, `UPDATE stock_items SET reserved_qty = reserved_qty - ? WHERE id = ?`, qty, id)
	if err != nil {
		return fmt.Errorf("release stock item: %w", err)
	}
	return requireRowAffected(res, errs.New(errs.NotFound, "stock item not found"))
}
