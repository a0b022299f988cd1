package pg_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/storefront/pkg/pg"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	unique := &pgconn.PgError{Code: "23505", ConstraintName: "billing_invoices_one_pending_idx"}
	fk := &pgconn.PgError{Code: "23503"}
	serial := &pgconn.PgError{Code: "40001"}

	tests := []struct {
		name       string
		err        error
		notFound   bool
		duplicate  bool
		foreignKey bool
		serialize  bool
		constraint string
	}{
		{name: "nil"},
		{name: "plain error", err: errors.New("boom")},
		{name: "no rows", err: pgx.ErrNoRows, notFound: true},
		{name: "wrapped no rows", err: fmt.Errorf("get invoice: %w", pgx.ErrNoRows), notFound: true},
		{name: "unique violation", err: unique, duplicate: true, constraint: "billing_invoices_one_pending_idx"},
		{name: "joined unique violation", err: errors.Join(errors.New("insert"), unique), duplicate: true, constraint: "billing_invoices_one_pending_idx"},
		{name: "foreign key", err: fk, foreignKey: true},
		{name: "serialization", err: serial, serialize: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.notFound, pg.IsNotFoundError(tt.err))
			assert.Equal(t, tt.duplicate, pg.IsDuplicateKeyError(tt.err))
			assert.Equal(t, tt.foreignKey, pg.IsForeignKeyViolationError(tt.err))
			assert.Equal(t, tt.serialize, pg.IsSerializationError(tt.err))
			assert.Equal(t, tt.constraint, pg.ConstraintName(tt.err))
		})
	}
}
