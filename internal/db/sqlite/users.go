package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ukydev/fleet-backoffice/internal/models"
)

const userColumns = `id, username, email, password_hash, role, first_name, last_name,
	is_active, last_login, created_at, updated_at`

// InsertUser inserts a new user into the database
func (c *collections) InsertUser(ctx context.Context, user models.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	user.IsActive = true

	_, err := c.q.ExecContext(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, string(user.Role),
		user.FirstName, user.LastName, user.IsActive, nullTime(user.LastLogin),
		formatTime(user.CreatedAt), formatTime(user.UpdatedAt),
	)
	return mapError(err, "user")
}

// FindUserByID finds a user by their ID
func (c *collections) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return c.findUser(ctx, "id", id)
}

// FindUserByUsername finds a user by their username
func (c *collections) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return c.findUser(ctx, "username", username)
}

// FindUserByEmail finds a user by their email
func (c *collections) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return c.findUser(ctx, "email", email)
}

func (c *collections) findUser(ctx context.Context, column, value string) (*models.User, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound("user", value)
	}
	return user, err
}

// ListUsers returns every user ordered by username.
func (c *collections) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := c.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateUser replaces a user's mutable fields.
func (c *collections) UpdateUser(ctx context.Context, id string, user models.User) error {
	res, err := c.q.ExecContext(ctx, `UPDATE users SET username = ?, email = ?, password_hash = ?,
		role = ?, first_name = ?, last_name = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		user.Username, user.Email, user.PasswordHash, string(user.Role), user.FirstName,
		user.LastName, user.IsActive, formatTime(time.Now()), id,
	)
	if err != nil {
		return mapError(err, "user")
	}
	return expectOne(res, "user", id)
}

// DeleteUser deletes a user and their notifications.
func (c *collections) DeleteUser(ctx context.Context, id string) error {
	if _, err := c.q.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = ?`, id); err != nil {
		return err
	}
	res, err := c.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res, "user", id)
}

// UpdateLastLogin updates the last login time for a user
func (c *collections) UpdateLastLogin(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	res, err := c.q.ExecContext(ctx, `UPDATE users SET last_login = ?, updated_at = ? WHERE id = ?`, now, now, id)
	if err != nil {
		return err
	}
	return expectOne(res, "user", id)
}

func scanUser(row scanner) (*models.User, error) {
	var (
		user                 models.User
		role                 string
		lastLogin            sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &role,
		&user.FirstName, &user.LastName, &user.IsActive, &lastLogin, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	user.Role = models.Role(role)

	var err error
	if user.LastLogin, err = parseNullTime(lastLogin); err != nil {
		return nil, err
	}
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}
