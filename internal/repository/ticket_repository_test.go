package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsSlotViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "unique violation on the slot index",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "tickets_slot_active_uniq"},
			want: true,
		},
		{
			name: "wrapped unique violation",
			err:  fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "tickets_slot_active_uniq"}),
			want: true,
		},
		{
			name: "unique violation on another constraint",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "customers_email_uniq"},
			want: false,
		},
		{
			name: "other postgres error",
			err:  &pgconn.PgError{Code: "23514", ConstraintName: "tickets_slot_active_uniq"},
			want: false,
		},
		{
			name: "plain error",
			err:  errors.New("connection reset"),
			want: false,
		},
		{
			name: "nil",
			err:  nil,
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := isSlotViolation(tc.err); got != tc.want {
				t.Fatalf("isSlotViolation(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
