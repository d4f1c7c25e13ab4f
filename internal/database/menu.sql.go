// source: menu.sql

package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, name, recipe, image, category, price, discount, created_at, updated_at`

func scanMenuItem(row interface{ Scan(...interface{}) error }) (MenuItem, error) {
	var i MenuItem
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Recipe,
		&i.Image,
		&i.Category,
		&i.Price,
		&i.Discount,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createMenuItem = `-- name: CreateMenuItem :one
INSERT INTO menu_items (name, recipe, image, category, price, discount)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	Name     string         `json:"name"`
	Recipe   string         `json:"recipe"`
	Image    string         `json:"image"`
	Category string         `json:"category"`
	Price    pgtype.Numeric `json:"price"`
	Discount int32          `json:"discount"`
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem,
		arg.Name,
		arg.Recipe,
		arg.Image,
		arg.Category,
		arg.Price,
		arg.Discount,
	)
	return scanMenuItem(row)
}

const deleteMenuItem = `-- name: DeleteMenuItem :one
DELETE FROM menu_items WHERE id = $1
RETURNING id`

func (q *Queries) DeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteMenuItem, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

const getMenuItem = `-- name: GetMenuItem :one
SELECT ` + menuItemColumns + ` FROM menu_items
WHERE id = $1`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	row := q.db.QueryRow(ctx, getMenuItem, id)
	return scanMenuItem(row)
}

const listMenuItems = `-- name: ListMenuItems :many
SELECT ` + menuItemColumns + ` FROM menu_items
ORDER BY created_at, name`

func (q *Queries) ListMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		i, err := scanMenuItem(rows)
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

const searchMenuItems = `-- name: SearchMenuItems :many
SELECT ` + menuItemColumns + ` FROM menu_items
WHERE name ILIKE '%' || $1::text || '%'
   OR recipe ILIKE '%' || $1::text || '%'
   OR category ILIKE '%' || $1::text || '%'
ORDER BY created_at, name`

func (q *Queries) SearchMenuItems(ctx context.Context, query string) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, searchMenuItems, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		i, err := scanMenuItem(rows)
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

const updateMenuItem = `-- name: UpdateMenuItem :one
UPDATE menu_items
SET name = $2, recipe = $3, image = $4, category = $5, price = $6, discount = $7, updated_at = now()
WHERE id = $1
RETURNING ` + menuItemColumns

type UpdateMenuItemParams struct {
	ID       uuid.UUID      `json:"id"`
	Name     string         `json:"name"`
	Recipe   string         `json:"recipe"`
	Image    string         `json:"image"`
	Category string         `json:"category"`
	Price    pgtype.Numeric `json:"price"`
	Discount int32          `json:"discount"`
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, updateMenuItem,
		arg.ID,
		arg.Name,
		arg.Recipe,
		arg.Image,
		arg.Category,
		arg.Price,
		arg.Discount,
	)
	return scanMenuItem(row)
}
