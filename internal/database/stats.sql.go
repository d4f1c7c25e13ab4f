// source: stats.sql

package database

import (
	"context"
)

const getAdminStats = `-- name: GetAdminStats :one
SELECT
    (SELECT count(*) FROM users)::bigint AS users,
    (SELECT count(*) FROM menu_items)::bigint AS menu_items,
    (SELECT count(*) FROM orders)::bigint AS orders,
    (SELECT count(*) FROM orders WHERE status = 'pending')::bigint AS pending_orders`

type GetAdminStatsRow struct {
	Users         int64 `json:"users"`
	MenuItems     int64 `json:"menu_items"`
	Orders        int64 `json:"orders"`
	PendingOrders int64 `json:"pending_orders"`
}

func (q *Queries) GetAdminStats(ctx context.Context) (GetAdminStatsRow, error) {
	row := q.db.QueryRow(ctx, getAdminStats)
	var i GetAdminStatsRow
	err := row.Scan(
		&i.Users,
		&i.MenuItems,
		&i.Orders,
		&i.PendingOrders,
	)
	return i, err
}
