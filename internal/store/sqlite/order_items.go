package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cutflow/core/internal/errs"
	"github.com/cutflow/core/internal/store"
)

type orderItemsRepo struct{ db *DB }

func (r orderItemsRepo) GetByID(ctx context.Context, id string) (store.OrderItem, error) {
	row := r.db.txOrConn(ctx).QueryRowContext(ctx,
		`SELECT id, order_id, item_code, geometry_type, length, width, height, diameter, material_type_id, thickness, quantity, can_rotate
		 FROM order_items WHERE id = ?`, id)

	var it store.OrderItem
	var canRotate int
	if err := row.Scan(&it.ID, &it.OrderID, &it.ItemCode, &it.GeometryType, &it.Length, &it.Width, &it.Height,
		&it.Diameter, &it.MaterialTypeID, &it.Thickness, &it.Quantity, &canRotate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.OrderItem{}, errs.New(errs.NotFound, "order item not found")
		}
		return store.OrderItem{}, fmt.Errorf("get order item: %w", err)
	}
	it.CanRotate = canRotate != 0
	return it, nil
}
