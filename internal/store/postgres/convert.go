package postgres

// convert.go maps domain values to pgtype values and back.
// Invalid pgtype values stand for SQL NULL.

import (
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// toPgNumeric converts a decimal to an exact pgtype.Numeric.
func toPgNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

// toPgNullNumeric converts a nullable decimal.
func toPgNullNumeric(d decimal.NullDecimal) pgtype.Numeric {
	if !d.Valid {
		return pgtype.Numeric{Valid: false}
	}
	return toPgNumeric(d.Decimal)
}

// fromPgNumeric converts a numeric column. NULL, NaN and infinities map to
// zero.
func fromPgNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite {
		return decimal.Zero
	}
	if n.Int == nil {
		return decimal.NewFromBigInt(new(big.Int), n.Exp)
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

// fromPgNullNumeric converts a nullable numeric column.
func fromPgNullNumeric(n pgtype.Numeric) decimal.NullDecimal {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(fromPgNumeric(n))
}

// toPgUUID converts an optional upload ID.
func toPgUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

// fromPgUUID converts a nullable uuid column.
func fromPgUUID(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

func toPgTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}

func fromPgTimestamptz(ts pgtype.Timestamptz) time.Time {
	if !ts.Valid {
		return time.Time{}
	}
	return ts.Time.UTC()
}
