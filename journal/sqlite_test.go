package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteJournalRoundTrip(t *testing.T) {
	t.Parallel()

	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.sqlite"))
	require.NoError(t, err)
	defer j.Close()

	base := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)

	require.NoError(t, j.RecordExecution(ExecutionRecord{
		OrderID:       "ord-1",
		Instrument:    "AAPL",
		Side:          "buy",
		Quantity:      50,
		Status:        "submitted",
		Strategy:      "adaptive",
		BrokerOrderID: "brk-1",
		Chunks:        5,
		Time:          base,
	}))
	require.NoError(t, j.RecordExecution(ExecutionRecord{
		OrderID:    "ord-2",
		Instrument: "MSFT",
		Side:       "sell",
		Quantity:   10,
		Status:     "failed",
		Strategy:   "aggressive",
		Error:      "rejected",
		Time:       base.Add(-48 * time.Hour),
	}))
	require.NoError(t, j.RecordCompliance(ComplianceRecord{
		OrderID:    "ord-3",
		Instrument: "AAPL",
		Code:       "WASH_SALE",
		Message:    "sell within trailing window",
		Time:       base,
	}))

	recent, err := j.ListExecutionsSince(base.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "ord-1", recent[0].OrderID)
	assert.Equal(t, int64(50), recent[0].Quantity)
	assert.Equal(t, 5, recent[0].Chunks)
	assert.NotEmpty(t, recent[0].ID)

	all, err := j.ListExecutionsSince(base.Add(-30 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
