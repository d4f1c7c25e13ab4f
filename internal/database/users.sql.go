// source: users.sql

package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, name, email, photo_url, role, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.PhotoUrl,
		&i.Role,
		&i.CreatedAt,
	)
	return i, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (name, email, photo_url, role)
VALUES ($1, lower($2), $3, $4)
RETURNING ` + userColumns

type CreateUserParams struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	PhotoUrl pgtype.Text `json:"photo_url"`
	Role     string      `json:"role"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.Name,
		arg.Email,
		arg.PhotoUrl,
		arg.Role,
	)
	return scanUser(row)
}

const deleteUser = `-- name: DeleteUser :one
DELETE FROM users WHERE id = $1
RETURNING id`

func (q *Queries) DeleteUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteUser, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

const getUser = `-- name: GetUser :one
SELECT ` + userColumns + ` FROM users
WHERE id = $1`

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, getUser, id)
	return scanUser(row)
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users
WHERE email = lower($1)`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	return scanUser(row)
}

const getUserRole = `-- name: GetUserRole :one
SELECT role FROM users
WHERE email = lower($1)`

func (q *Queries) GetUserRole(ctx context.Context, email string) (string, error) {
	row := q.db.QueryRow(ctx, getUserRole, email)
	var role string
	err := row.Scan(&role)
	return role, err
}

const listUsers = `-- name: ListUsers :many
SELECT ` + userColumns + ` FROM users
ORDER BY created_at`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []User{}
	for rows.Next() {
		i, err := scanUser(rows)
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

const promoteUser = `-- name: PromoteUser :one
UPDATE users SET role = 'ADMIN'
WHERE id = $1
RETURNING ` + userColumns

func (q *Queries) PromoteUser(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, promoteUser, id)
	return scanUser(row)
}

const updateUserProfile = `-- name: UpdateUserProfile :one
UPDATE users
SET name = $2, photo_url = COALESCE($3, photo_url)
WHERE email = lower($1)
RETURNING ` + userColumns

type UpdateUserProfileParams struct {
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	PhotoUrl pgtype.Text `json:"photo_url"`
}

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error) {
	row := q.db.QueryRow(ctx, updateUserProfile, arg.Email, arg.Name, arg.PhotoUrl)
	return scanUser(row)
}
