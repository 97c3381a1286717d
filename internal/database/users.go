// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/parley/internal/models"
)

// User errors
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// CreateUser inserts a new account. The password must already be hashed.
// Returns ErrEmailTaken when the email is in use.
func (db *DB) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	start := time.Now()
	var err error
	defer func() { observe("create", "users", start, err) }()

	user := &models.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		CreatedAt: utcNow(),
	}

	query := `INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err = db.conn.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, passwordHash, user.CreatedAt, user.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetUserByID retrieves a user by primary key.
func (db *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	start := time.Now()
	var err error
	defer func() { observe("get", "users", start, err) }()

	query := `SELECT id, name, email, image, created_at FROM users WHERE id = ?`

	user, err := scanUser(db.conn.QueryRowContext(ctx, query, id))
	return user, err
}

// GetUserByEmail retrieves a user by email together with the stored
// password hash, for login verification.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, string, error) {
	start := time.Now()
	var err error
	defer func() { observe("get", "users", start, err) }()

	query := `SELECT id, name, email, image, created_at, password_hash
		FROM users WHERE email = ?`

	user := &models.User{}
	var image sql.NullString
	var passwordHash string

	err = db.conn.QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.Name, &user.Email, &image, &user.CreatedAt, &passwordHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", fmt.Errorf("failed to get user by email: %w", err)
	}

	if image.Valid {
		user.Image = &image.String
	}
	return user, passwordHash, nil
}

// ListUsersExcept returns all users except the given one, ordered by
// name. This backs the new-conversation picker.
func (db *DB) ListUsersExcept(ctx context.Context, excludeID uuid.UUID) ([]models.User, error) {
	start := time.Now()
	var err error
	defer func() { observe("list", "users", start, err) }()

	query := `SELECT id, name, email, image, created_at
		FROM users WHERE id != ? ORDER BY name, id`

	rows, err := db.conn.QueryContext(ctx, query, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer closeQuietly(rows)

	users := []models.User{}
	for rows.Next() {
		user, scanErr := scanUserFromRows(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		users = append(users, *user)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// UpdateUserProfile updates the mutable profile fields. Nil fields are
// left unchanged.
func (db *DB) UpdateUserProfile(ctx context.Context, id uuid.UUID, name *string, image *string) (*models.User, error) {
	start := time.Now()
	var err error
	defer func() { observe("update", "users", start, err) }()

	if name != nil {
		if _, err = db.conn.ExecContext(ctx,
			`UPDATE users SET name = ?, updated_at = ? WHERE id = ?`,
			*name, utcNow(), id,
		); err != nil {
			return nil, fmt.Errorf("failed to update user name: %w", err)
		}
	}
	if image != nil {
		if _, err = db.conn.ExecContext(ctx,
			`UPDATE users SET image = ?, updated_at = ? WHERE id = ?`,
			*image, utcNow(), id,
		); err != nil {
			return nil, fmt.Errorf("failed to update user image: %w", err)
		}
	}

	return db.GetUserByID(ctx, id)
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var image sql.NullString

	err := row.Scan(&user.ID, &user.Name, &user.Email, &image, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if image.Valid {
		user.Image = &image.String
	}
	return user, nil
}

func scanUserFromRows(rows *sql.Rows) (*models.User, error) {
	return scanUser(rows)
}
