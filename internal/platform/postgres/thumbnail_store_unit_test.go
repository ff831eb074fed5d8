package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPostgresThumbnailStore(t *testing.T) {
	t.Parallel()

	t.Run("nil_db_panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() {
			NewPostgresThumbnailStore(nil, slog.Default())
		})
	})

	t.Run("nil_logger_uses_default", func(t *testing.T) {
		t.Parallel()
		s := NewPostgresThumbnailStore(&sql.DB{}, nil)
		assert.NotNil(t, s)
		assert.NotNil(t, s.logger)
	})

	t.Run("with_tx_keeps_logger", func(t *testing.T) {
		t.Parallel()
		s := NewPostgresThumbnailStore(&sql.DB{}, slog.Default())
		txStore := s.WithTx(&sql.Tx{})
		assert.NotNil(t, txStore)
		assert.NotSame(t, s, txStore)
	})
}

func TestEncodeReferenceIDs(t *testing.T) {
	t.Parallel()

	t.Run("nil_slice_encodes_as_empty_array", func(t *testing.T) {
		t.Parallel()
		encoded, err := encodeReferenceIDs(nil)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(encoded))
	})

	t.Run("ids_round_trip", func(t *testing.T) {
		t.Parallel()
		ids := []uuid.UUID{uuid.New(), uuid.New()}
		encoded, err := encodeReferenceIDs(ids)
		require.NoError(t, err)

		decoded := decodeReferenceIDs(encoded, slog.Default(), uuid.New())
		assert.Equal(t, ids, decoded)
	})
}

func TestDecodeReferenceIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  []byte
		want []uuid.UUID
	}{
		{
			name: "empty_column",
			raw:  nil,
			want: nil,
		},
		{
			name: "empty_array",
			raw:  []byte("[]"),
			want: []uuid.UUID{},
		},
		{
			name: "malformed_json_treated_as_empty",
			raw:  []byte("{not json"),
			want: nil,
		},
		{
			name: "wrong_shape_treated_as_empty",
			raw:  []byte(`{"ids": []}`),
			want: nil,
		},
		{
			name: "invalid_uuid_treated_as_empty",
			raw:  []byte(`["not-a-uuid"]`),
			want: nil,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := decodeReferenceIDs(tc.raw, slog.Default(), uuid.New())
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestListByIDs_EmptyInput(t *testing.T) {
	t.Parallel()

	// No IDs means no query: the empty result shape comes back directly.
	s := NewPostgresThumbnailStore(&sql.DB{}, slog.Default())
	rows, err := s.ListByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReferenceStoreGetByIDs_EmptyInput(t *testing.T) {
	t.Parallel()

	s := NewPostgresReferenceStore(&sql.DB{}, slog.Default())
	refs, err := s.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, refs)
}
