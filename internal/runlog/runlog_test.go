package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRecord() *Record {
	rec := NewRecord("retenciones", "retention")
	rec.Company = "TOSTADERO MANICOP S.R.L."
	rec.DateFrom, rec.DateTo = "2025-09-01", "2025-09-30"
	rec.Attempted, rec.Lines, rec.Failed = 3, 2, 1
	rec.TotalWithholding = "1500.50"
	rec.TotalTransaction = "121000.00"
	rec.FileName = "sicore_retenciones_20250930.txt"
	rec.State = StateWarning
	rec.ErrorLog = []string{"validation error in record 2 (OP 9): MISSING TAX CODE"}
	return rec
}

func TestNewRecord(t *testing.T) {
	rec := NewRecord("combustibles", "fuel")
	_, err := uuid.Parse(rec.ID)
	assert.NoError(t, err)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.NotEqual(t, rec.ID, NewRecord("combustibles", "fuel").ID)
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "runs"))

	rec := sampleRecord()
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, StateWarning, got.State)
	assert.Equal(t, rec.ErrorLog, got.ErrorLog)
	assert.Equal(t, "1500.50", got.TotalWithholding)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
}

func TestFileStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())

	older := sampleRecord()
	older.CreatedAt = time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	newer := sampleRecord()
	newer.CreatedAt = time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, older))
	require.NoError(t, store.Save(ctx, newer))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
}

func TestFileStoreErrors(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())

	_, err := store.Get(ctx, uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, store.Save(ctx, &Record{}))
	assert.Error(t, store.Save(ctx, &Record{ID: "not-a-uuid"}))
}

func TestWriteReport(t *testing.T) {
	store := NewFileStore(t.TempDir())
	rec := sampleRecord()

	path, err := store.WriteReport(rec)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Run ID", rec.ID}, summary[0])
	assert.Equal(t, []string{"Lines written", "2"}, summary[9])

	errs, err := f.GetRows(errorsSheet)
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, rec.ErrorLog[0], errs[1][1])
}

func TestWriteReportWithoutErrors(t *testing.T) {
	rec := sampleRecord()
	rec.ErrorLog = nil
	path := filepath.Join(t.TempDir(), "r.xlsx")
	require.NoError(t, WriteReport(path, rec))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{summarySheet}, f.GetSheetList())
}
