// source: carts.sql

package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const cartItemColumns = `id, email, menu_item_id, name, image, price, quantity, created_at`

func scanCartItem(row interface{ Scan(...interface{}) error }) (CartItem, error) {
	var i CartItem
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.MenuItemID,
		&i.Name,
		&i.Image,
		&i.Price,
		&i.Quantity,
		&i.CreatedAt,
	)
	return i, err
}

const deleteCartItem = `-- name: DeleteCartItem :one
DELETE FROM cart_items WHERE id = $1
RETURNING id`

func (q *Queries) DeleteCartItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteCartItem, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

const getCartItem = `-- name: GetCartItem :one
SELECT ` + cartItemColumns + ` FROM cart_items
WHERE id = $1`

func (q *Queries) GetCartItem(ctx context.Context, id uuid.UUID) (CartItem, error) {
	row := q.db.QueryRow(ctx, getCartItem, id)
	return scanCartItem(row)
}

const listCartItems = `-- name: ListCartItems :many
SELECT ` + cartItemColumns + ` FROM cart_items
WHERE email = lower($1)
ORDER BY created_at, id`

func (q *Queries) ListCartItems(ctx context.Context, email string) ([]CartItem, error) {
	rows, err := q.db.Query(ctx, listCartItems, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CartItem{}
	for rows.Next() {
		i, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const setCartItemQuantity = `-- name: SetCartItemQuantity :one
UPDATE cart_items SET quantity = $2
WHERE id = $1
RETURNING ` + cartItemColumns

type SetCartItemQuantityParams struct {
	ID       uuid.UUID `json:"id"`
	Quantity int32     `json:"quantity"`
}

func (q *Queries) SetCartItemQuantity(ctx context.Context, arg SetCartItemQuantityParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, setCartItemQuantity, arg.ID, arg.Quantity)
	return scanCartItem(row)
}

// The snapshot columns keep their first values; only quantity grows.
const upsertCartItem = `-- name: UpsertCartItem :one
INSERT INTO cart_items (email, menu_item_id, name, image, price, quantity)
VALUES (lower($1), $2, $3, $4, $5, $6)
ON CONFLICT (email, menu_item_id)
DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
RETURNING ` + cartItemColumns

type UpsertCartItemParams struct {
	Email      string         `json:"email"`
	MenuItemID uuid.UUID      `json:"menu_item_id"`
	Name       string         `json:"name"`
	Image      string         `json:"image"`
	Price      pgtype.Numeric `json:"price"`
	Quantity   int32          `json:"quantity"`
}

func (q *Queries) UpsertCartItem(ctx context.Context, arg UpsertCartItemParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, upsertCartItem,
		arg.Email,
		arg.MenuItemID,
		arg.Name,
		arg.Image,
		arg.Price,
		arg.Quantity,
	)
	return scanCartItem(row)
}
