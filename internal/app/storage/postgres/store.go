package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/thriftline/marketplace/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.ProductStore = (*Store)(nil)
var _ storage.CartStore = (*Store)(nil)
var _ storage.OrderStore = (*Store)(nil)
var _ storage.ReviewStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)
var _ storage.Pinger = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Postgres error codes mapped onto storage sentinels.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02"
)

// mapError translates driver errors into the storage sentinels while keeping
// the original error in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", storage.ErrConflict, pqErr.Constraint)
		case codeForeignKeyViolation, codeInvalidText:
			return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
		}
	}
	return err
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %w", storage.ErrNotFound, sql.ErrNoRows)
	}
	return nil
}

// params accumulates positional arguments and "column = $n" assignments.
type params struct {
	parts []string
	args  []interface{}
}

func (c *params) add(column string, value interface{}) {
	c.args = append(c.args, value)
	c.parts = append(c.parts, fmt.Sprintf("%s = $%d", column, len(c.args)))
}

func (c *params) String() string {
	return strings.Join(c.parts, ", ")
}

// next returns the placeholder for one more positional argument.
func (c *params) next(value interface{}) string {
	c.args = append(c.args, value)
	return fmt.Sprintf("$%d", len(c.args))
}
