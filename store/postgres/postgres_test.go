package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"

	"github.com/memflow/memflow/memory"
)

func TestPostgresEntryStore_Add(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewEntryStoreWithPool(mock, "memory_entries")

	entry := memory.NewEntry("the user prefers dark mode", memory.TypeSemantic)
	data, _ := json.Marshal(entry)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO memory_entries")).
		WithArgs(
			entry.ID,
			entry.Content,
			string(entry.Type),
			entry.UserID,
			entry.SessionID,
			entry.RelevanceScore,
			nil,
			data,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = s.Add(context.Background(), entry)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEntryStore_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewEntryStoreWithPool(mock, "memory_entries")

	entry := memory.NewEntry("a stored fact", memory.TypeSemantic)
	data, _ := json.Marshal(entry)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT data FROM memory_entries WHERE id = $1")).
		WithArgs(entry.ID).
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(data))

	loaded, ok, err := s.Get(context.Background(), entry.ID)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entry.ID, loaded.ID)
	assert.Equal(t, entry.Content, loaded.Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEntryStore_GetMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewEntryStoreWithPool(mock, "memory_entries")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT data FROM memory_entries WHERE id = $1")).
		WithArgs("does-not-exist").
		WillReturnRows(pgxmock.NewRows([]string{"data"}))

	_, ok, err := s.Get(context.Background(), "does-not-exist")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEntryStore_Search(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewEntryStoreWithPool(mock, "memory_entries")

	high := memory.NewEntry("likes strong coffee", memory.TypeSemantic)
	high.RelevanceScore = 0.9
	low := memory.NewEntry("drinks coffee daily", memory.TypeSemantic)
	low.RelevanceScore = 0.2
	highJSON, _ := json.Marshal(high)
	lowJSON, _ := json.Marshal(low)

	mock.ExpectQuery("SELECT data FROM memory_entries").
		WithArgs("%coffee%", pgxmock.AnyArg(), 5).
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(highJSON).AddRow(lowJSON))

	results, err := s.Search(context.Background(), "coffee", 5)
	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, high.ID, results[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEntryStore_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewEntryStoreWithPool(mock, "memory_entries")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM memory_entries WHERE id = $1")).
		WithArgs("entry-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	existed, err := s.Delete(context.Background(), "entry-1")
	assert.NoError(t, err)
	assert.True(t, existed)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM memory_entries WHERE id = $1")).
		WithArgs("entry-2").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	existed, err = s.Delete(context.Background(), "entry-2")
	assert.NoError(t, err)
	assert.False(t, existed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEntryStore_Clear(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewEntryStoreWithPool(mock, "memory_entries")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM memory_entries")).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	assert.NoError(t, s.Clear(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEntryStore_AddError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewEntryStoreWithPool(mock, "memory_entries")
	entry := memory.NewEntry("fact", memory.TypeSemantic)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO memory_entries")).
		WithArgs(
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
		).
		WillReturnError(errors.New("connection refused"))

	err = s.Add(context.Background(), entry)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEntryStore_InitSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewEntryStoreWithPool(mock, "memory_entries")

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS memory_entries").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	assert.NoError(t, s.InitSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
