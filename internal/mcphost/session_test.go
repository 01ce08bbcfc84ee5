package mcphost_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellforge/gscalc/eval"
	"github.com/cellforge/gscalc/internal/mcphost"
	"github.com/cellforge/gscalc/workbook"
)

func newWorkbook(t *testing.T) *workbook.Workbook {
	t.Helper()
	wb := workbook.New("fixture")
	_, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)
	return wb
}

func TestOpenAndWithReadWrite(t *testing.T) {
	mgr := mcphost.NewSessionManager(4, time.Minute, time.Minute)
	id, err := mgr.Open(context.Background(), newWorkbook(t))
	require.NoError(t, err)
	assert.Equal(t, 1, mgr.Count())

	var sheetCount int
	err = mgr.WithRead(id, func(wb *workbook.Workbook, ev *eval.Evaluator) error {
		sheetCount = len(wb.Sheets())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sheetCount)

	err = mgr.WithWrite(id, func(wb *workbook.Workbook, ev *eval.Evaluator) error {
		_, addErr := wb.AddSheet("Sheet2")
		return addErr
	})
	require.NoError(t, err)

	err = mgr.WithRead(id, func(wb *workbook.Workbook, ev *eval.Evaluator) error {
		sheetCount = len(wb.Sheets())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sheetCount)
}

func TestWithReadUnknownSessionReturnsErrSessionNotFound(t *testing.T) {
	mgr := mcphost.NewSessionManager(4, time.Minute, time.Minute)
	err := mgr.WithRead("does-not-exist", func(*workbook.Workbook, *eval.Evaluator) error { return nil })
	assert.ErrorIs(t, err, mcphost.ErrSessionNotFound)
}

func TestCloseSessionFreesCapacity(t *testing.T) {
	mgr := mcphost.NewSessionManager(1, time.Minute, time.Minute)
	id, err := mgr.Open(context.Background(), newWorkbook(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = mgr.Open(ctx, newWorkbook(t))
	assert.Error(t, err, "capacity gate should block a second open beyond maxOpen")

	require.NoError(t, mgr.CloseSession(id))
	assert.Equal(t, 0, mgr.Count())

	id2, err := mgr.Open(context.Background(), newWorkbook(t))
	require.NoError(t, err)
	assert.NotEmpty(t, id2)
}

func TestCloseSessionUnknownReturnsError(t *testing.T) {
	mgr := mcphost.NewSessionManager(4, time.Minute, time.Minute)
	err := mgr.CloseSession("does-not-exist")
	assert.ErrorIs(t, err, mcphost.ErrSessionNotFound)
}

func TestEvictExpiredDropsIdleSessions(t *testing.T) {
	mgr := mcphost.NewSessionManager(4, 10*time.Millisecond, time.Hour)
	_, err := mgr.Open(context.Background(), newWorkbook(t))
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	evicted := mgr.EvictExpired()
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 0, mgr.Count())
}

func TestGetRefreshesExpiryOnAccess(t *testing.T) {
	mgr := mcphost.NewSessionManager(4, 50*time.Millisecond, time.Hour)
	id, err := mgr.Open(context.Background(), newWorkbook(t))
	require.NoError(t, err)

	// touch the session partway through its TTL; this should push
	// expiry out rather than let it lapse on the original schedule.
	time.Sleep(30 * time.Millisecond)
	err = mgr.WithRead(id, func(*workbook.Workbook, *eval.Evaluator) error { return nil })
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, mgr.Count(), "access at 30ms should have refreshed the 50ms TTL past 60ms total")
}
