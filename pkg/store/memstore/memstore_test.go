package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeAltea/altea-pay/pkg/store"
)

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Should assign ids on create and find by filter", func(t *testing.T) {
		s := New()
		rec, err := s.Create(ctx, "customers", store.Record{"document": "123", "company_id": "c1"})
		require.NoError(t, err)
		require.NotEmpty(t, rec.ID())

		got, err := s.FindOne(ctx, "customers", store.Filter{"document": "123", "company_id": "c1"})
		require.NoError(t, err)
		assert.Equal(t, rec.ID(), got.ID())

		_, err = s.FindOne(ctx, "customers", store.Filter{"document": "123", "company_id": "c2"})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Should record calls and counts", func(t *testing.T) {
		s := New()
		s.Seed("companies", store.Record{"cnpj": "1"})
		_, _ = s.FindOne(ctx, "companies", store.Filter{"cnpj": "1"})
		_, _ = s.Create(ctx, "debts", store.Record{"amount": "1"})
		_, _ = s.Create(ctx, "debts", store.Record{"amount": "2"})

		assert.Len(t, s.Calls(), 3)
		assert.Equal(t, 1, s.Count(OpFind, "companies"))
		assert.Equal(t, 2, s.Count(OpCreate, "debts"))
		assert.Len(t, s.Records("debts"), 2)
		assert.Len(t, s.Records("companies"), 1)
	})

	t.Run("Should fail calls selected by the hook", func(t *testing.T) {
		s := New()
		boom := errors.New("boom")
		s.FailOn(func(c Call) error {
			if c.Op == OpCreate && c.Attrs["amount"] == "bad" {
				return boom
			}
			return nil
		})

		_, err := s.Create(ctx, "debts", store.Record{"amount": "bad"})
		assert.ErrorIs(t, err, boom)
		_, err = s.Create(ctx, "debts", store.Record{"amount": "ok"})
		assert.NoError(t, err)
		assert.Len(t, s.Records("debts"), 1)
	})

	t.Run("Should honor a cancelled context", func(t *testing.T) {
		s := New()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.Create(cctx, "debts", store.Record{})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, s.Calls())
	})
}
