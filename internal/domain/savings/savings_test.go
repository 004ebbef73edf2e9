package savings

import (
	"testing"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(t *testing.T, collector uuid.UUID, typ EntryType, amount int64) DepositEntry {
	t.Helper()
	e, err := NewDepositEntry("NIS-001", collector, typ, amount, nil)
	require.NoError(t, err)
	return *e
}

func TestNewDepositEntry(t *testing.T) {
	collector := uuid.New()
	notes := "  titipan orang tua "

	e, err := NewDepositEntry(" NIS-042 ", collector, EntryTypeWithdrawal, 15_000, &notes)
	require.NoError(t, err)
	assert.Equal(t, "NIS-042", e.StudentRef)
	assert.Equal(t, StatusPending, e.Status)
	assert.Nil(t, e.BatchID)
	assert.Equal(t, "titipan orang tua", *e.Notes)
	assert.Equal(t, int64(-15_000), e.SignedAmount())
	assert.True(t, e.IsBatchable())

	blank := "   "
	e, err = NewDepositEntry("NIS-042", collector, EntryTypeDeposit, 1, &blank)
	require.NoError(t, err)
	assert.Nil(t, e.Notes)

	for name, call := range map[string]func() error{
		"student": func() error { _, err := NewDepositEntry(" ", collector, EntryTypeDeposit, 1, nil); return err },
		"collector": func() error {
			_, err := NewDepositEntry("NIS-1", uuid.Nil, EntryTypeDeposit, 1, nil)
			return err
		},
		"type":   func() error { _, err := NewDepositEntry("NIS-1", collector, "gift", 1, nil); return err },
		"amount": func() error { _, err := NewDepositEntry("NIS-1", collector, EntryTypeDeposit, 0, nil); return err },
	} {
		assert.True(t, shared.IsCode(call(), shared.CodeValidation), name)
	}
}

func TestNewDepositBatch(t *testing.T) {
	collector := uuid.New()

	t.Run("net deposit", func(t *testing.T) {
		entries := []DepositEntry{
			entry(t, collector, EntryTypeDeposit, 25_000),
			entry(t, collector, EntryTypeDeposit, 40_000),
			entry(t, collector, EntryTypeWithdrawal, 5_000),
		}
		b, err := NewDepositBatch(collector, nil, entries)
		require.NoError(t, err)

		assert.Equal(t, BatchTypeDepositToTreasurer, b.Type)
		assert.Equal(t, int64(60_000), b.TotalAmount)
		assert.Equal(t, int64(60_000), b.NetSigned())
		assert.Equal(t, StatusPending, b.Status)
		require.Len(t, b.Entries, 3)
		for _, e := range b.Entries {
			require.NotNil(t, e.BatchID)
			assert.Equal(t, b.ID, *e.BatchID)
		}
		assert.Nil(t, entries[0].BatchID, "the caller's slice is not modified")
	})

	t.Run("net withdrawal", func(t *testing.T) {
		b, err := NewDepositBatch(collector, nil, []DepositEntry{
			entry(t, collector, EntryTypeDeposit, 10_000),
			entry(t, collector, EntryTypeWithdrawal, 30_000),
		})
		require.NoError(t, err)
		assert.Equal(t, BatchTypeWithdrawalFromTreasurer, b.Type)
		assert.Equal(t, int64(20_000), b.TotalAmount)
		assert.Equal(t, int64(-20_000), b.NetSigned())
	})

	t.Run("zero net", func(t *testing.T) {
		b, err := NewDepositBatch(collector, nil, []DepositEntry{
			entry(t, collector, EntryTypeDeposit, 10_000),
			entry(t, collector, EntryTypeWithdrawal, 10_000),
		})
		require.NoError(t, err)
		assert.Zero(t, b.TotalAmount)
	})

	t.Run("needs entries", func(t *testing.T) {
		_, err := NewDepositBatch(collector, nil, nil)
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})

	t.Run("needs a collector", func(t *testing.T) {
		_, err := NewDepositBatch(uuid.Nil, nil, []DepositEntry{entry(t, collector, EntryTypeDeposit, 1)})
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})

	t.Run("foreign entry", func(t *testing.T) {
		_, err := NewDepositBatch(collector, nil, []DepositEntry{entry(t, uuid.New(), EntryTypeDeposit, 1)})
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})

	t.Run("already batched entry", func(t *testing.T) {
		e := entry(t, collector, EntryTypeDeposit, 1)
		other := uuid.New()
		e.BatchID = &other
		_, err := NewDepositBatch(collector, nil, []DepositEntry{e})
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

func TestDepositBatch_Verify(t *testing.T) {
	collector, treasurer := uuid.New(), uuid.New()
	b, err := NewDepositBatch(collector, nil, []DepositEntry{
		entry(t, collector, EntryTypeDeposit, 10_000),
		entry(t, collector, EntryTypeDeposit, 5_000),
	})
	require.NoError(t, err)

	assert.True(t, shared.IsCode(b.Verify(uuid.Nil), shared.CodeValidation))
	require.NoError(t, b.Verify(treasurer))

	assert.Equal(t, StatusVerified, b.Status)
	assert.Equal(t, treasurer, *b.VerifiedBy)
	assert.NotNil(t, b.VerifiedAt)
	for _, e := range b.Entries {
		assert.Equal(t, StatusVerified, e.Status)
	}

	events := b.PullDomainEvents()
	require.Len(t, events, 1)
	verified := events[0].(*BatchVerifiedEvent)
	assert.Equal(t, int64(15_000), verified.TotalAmount)
	assert.Equal(t, 2, verified.EntryCount)

	assert.ErrorIs(t, b.Verify(treasurer), shared.ErrInvalidState, "verification is final")
	assert.ErrorIs(t, b.Reject("salah hitung", treasurer), shared.ErrInvalidState)
}

func TestDepositBatch_Reject(t *testing.T) {
	collector := uuid.New()
	notes := "setoran kelas 7A"
	b, err := NewDepositBatch(collector, &notes, []DepositEntry{entry(t, collector, EntryTypeDeposit, 10_000)})
	require.NoError(t, err)

	require.NoError(t, b.Reject(" uang kurang 2.000 ", uuid.New()))
	assert.Equal(t, StatusRejected, b.Status)
	assert.Equal(t, "setoran kelas 7A\n"+RejectionMarker+" uang kurang 2.000", *b.Notes)
	assert.Equal(t, StatusRejected, b.Entries[0].Status)
	assert.Nil(t, b.VerifiedBy)

	events := b.PullDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeBatchRejected, events[0].EventType())
}

func TestDepositBatch_RejectWithoutReasonKeepsNotes(t *testing.T) {
	collector := uuid.New()
	b, err := NewDepositBatch(collector, nil, []DepositEntry{entry(t, collector, EntryTypeDeposit, 1)})
	require.NoError(t, err)

	require.NoError(t, b.Reject("", uuid.New()))
	assert.Nil(t, b.Notes)

	b2, err := NewDepositBatch(collector, nil, []DepositEntry{entry(t, collector, EntryTypeDeposit, 1)})
	require.NoError(t, err)
	require.NoError(t, b2.Reject("tidak cocok", uuid.New()))
	assert.Equal(t, RejectionMarker+" tidak cocok", *b2.Notes)
}
