package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestStorageErr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{name: "bad conn", err: driver.ErrBadConn, unavailable: true},
		{name: "deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), unavailable: true},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, unavailable: false},
		{name: "plain", err: errors.New("syntax error"), unavailable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := storageErr("op", tt.err)
			if got := errors.Is(err, domain.ErrStorageUnavailable); got != tt.unavailable {
				t.Fatalf("unavailable=%v, want %v (%v)", got, tt.unavailable, err)
			}
			if !errors.Is(err, tt.err) {
				t.Fatalf("original error must stay in chain: %v", err)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	if !isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})) {
		t.Fatal("expected unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("foreign key violation is not unique violation")
	}
}
