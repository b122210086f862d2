package storeerr

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrUnavailable marks a transient store failure; the whole operation is
	// safe to retry by the caller.
	ErrUnavailable = errors.New("store unavailable")
	// ErrNotFound mirrors gorm.ErrRecordNotFound without leaking gorm upward.
	ErrNotFound = errors.New("record not found")
)

// Classify wraps err so callers can match ErrUnavailable / ErrNotFound with
// errors.Is. Unclassified errors are wrapped with op only.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNotFound) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Join(ErrNotFound, wrapOp(op, err))
	case IsTransient(err):
		return errors.Join(ErrUnavailable, wrapOp(op, err))
	}
	return wrapOp(op, err)
}

// IsTransient reports deadlines, connection loss, serialization failures and
// lock contention.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := strings.TrimSpace(pgErr.Code)
		switch {
		case code == "40001", code == "40P01", code == "55P03", code == "57P01":
			return true
		case strings.HasPrefix(code, "08"):
			return true
		}
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "bad connection") ||
		strings.Contains(msg, "deadlock")
}

// IsUniqueViolation reports a duplicate-key error on either dialect.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

type opError struct {
	op  string
	err error
}

func (e *opError) Error() string { return e.op + ": " + e.err.Error() }
func (e *opError) Unwrap() error { return e.err }

func wrapOp(op string, err error) error {
	if op == "" {
		return err
	}
	return &opError{op: op, err: err}
}
