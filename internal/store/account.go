package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Account is the authenticated identity persisted between runs. A missing
// row means the session has never completed login.
type Account struct {
	UserID    int64
	Phone     string
	Name      string
	AuthToken string
}

// Account returns the stored account, or nil when the session is not
// logged in.
func (db *DB) Account(ctx context.Context) (*Account, error) {
	row := db.QueryRowContext(ctx,
		`SELECT user_id, phone, name, auth_token FROM account WHERE id = 1`)

	var a Account
	err := row.Scan(&a.UserID, &a.Phone, &a.Name, &a.AuthToken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	return &a, nil
}

// SaveAccount stores the account, replacing any previous identity.
func (db *DB) SaveAccount(ctx context.Context, a Account) error {
	now := time.Now().Unix()
	_, err := db.ExecContext(ctx,
		`INSERT INTO account (id, user_id, phone, name, auth_token, created_at, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   user_id = excluded.user_id,
		   phone = excluded.phone,
		   name = excluded.name,
		   auth_token = excluded.auth_token,
		   updated_at = excluded.updated_at`,
		a.UserID, a.Phone, a.Name, a.AuthToken, now, now)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// DeleteAccount removes the stored identity (logout).
func (db *DB) DeleteAccount(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM account WHERE id = 1`); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}
