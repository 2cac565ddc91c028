package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shandysiswandi/shopauth/internal/pkg/goerror"
	"github.com/shandysiswandi/shopauth/internal/pkg/instrument"
	"github.com/stretchr/testify/assert"
)

func TestDB_mapError(t *testing.T) {
	db := NewDB(nil, instrument.NewNoop())
	other := errors.New("boom")
	checkErr := &pgconn.PgError{Code: "23514"}

	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "no rows", in: pgx.ErrNoRows, want: goerror.ErrNotFound},
		{name: "wrapped no rows", in: fmt.Errorf("scan: %w", pgx.ErrNoRows), want: goerror.ErrNotFound},
		{name: "unique violation", in: &pgconn.PgError{Code: "23505"}, want: goerror.ErrConflict},
		{name: "check violation", in: checkErr, want: checkErr},
		{name: "other", in: other, want: other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, db.mapError(tt.in))
		})
	}
}
