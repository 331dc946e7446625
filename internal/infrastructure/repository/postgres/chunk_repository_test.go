package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*ChunkRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	repo := NewChunkRepository(db)
	repo.now = func() time.Time { return time.Date(2025, time.July, 20, 9, 0, 0, 0, time.UTC) }
	return repo, mock, func() { _ = db.Close() }
}

var chunkColumns = []string{"id", "text", "date", "title", "type", "source"}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(int64(2025071601)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS chunks").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveChunksInsertsInTransaction(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	docs := []domain.Document{
		{ID: "notice_a_0", Text: "t0", Metadata: domain.Metadata{Date: "2025-07-18", Title: "제목", Type: domain.TypeNotice, Source: "u"}},
		{ID: "notice_a_1", Text: "t1", Metadata: domain.Metadata{Date: "2025-07-18", Title: "제목", Type: domain.TypeNotice, Source: "u"}},
	}
	indexedAt := time.Date(2025, time.July, 20, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO chunks")
	prep.ExpectExec().WithArgs("notice_a_0", "t0", "2025-07-18", "제목", "notice", "u", indexedAt).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("notice_a_1", "t1", "2025-07-18", "제목", "notice", "u", indexedAt).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.SaveChunks(context.Background(), docs); err != nil {
		t.Fatalf("SaveChunks() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveChunksRollsBackOnError(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO chunks")
	prep.ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.SaveChunks(context.Background(), []domain.Document{{ID: "x", Metadata: domain.Metadata{Type: domain.TypeNotice}}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListChunksKeepsInsertionOrder(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, text, date, title, type, source FROM chunks ORDER BY seq").
		WillReturnRows(sqlmock.NewRows(chunkColumns).
			AddRow("b", "tb", "2025-07-19", "B", "schedule", "schedule").
			AddRow("a", "ta", "", "", "notice", ""))

	docs, err := repo.ListChunks(context.Background())
	if err != nil {
		t.Fatalf("ListChunks() error = %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "b" || docs[1].ID != "a" {
		t.Fatalf("unexpected docs %+v", docs)
	}
	if docs[0].Metadata.Type != domain.TypeSchedule {
		t.Fatalf("expected schedule type, got %s", docs[0].Metadata.Type)
	}
}

func TestGetChunksReturnsRequestedOrder(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(`WHERE id IN \(\$1,\$2,\$3\)`).
		WithArgs("c", "missing", "a").
		WillReturnRows(sqlmock.NewRows(chunkColumns).
			AddRow("a", "ta", "", "", "notice", "").
			AddRow("c", "tc", "", "", "notice", ""))

	docs, err := repo.GetChunks(context.Background(), []string{"c", "missing", "a"})
	if err != nil {
		t.Fatalf("GetChunks() error = %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "c" || docs[1].ID != "a" {
		t.Fatalf("expected c,a, got %+v", docs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestExistingIDs(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(`SELECT id FROM chunks WHERE id IN \(\$1,\$2\)`).
		WithArgs("a", "b").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("b"))

	got, err := repo.ExistingIDs(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("ExistingIDs() error = %v", err)
	}
	if _, ok := got["b"]; !ok || len(got) != 1 {
		t.Fatalf("expected only b, got %v", got)
	}
}

func TestExistingIDsEmptyInput(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	got, err := repo.ExistingIDs(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result without queries, got %v, %v", got, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestIDBatches(t *testing.T) {
	ids := make([]string, idBatchSize+1)
	batches := idBatches(ids)
	if len(batches) != 2 || len(batches[0]) != idBatchSize || len(batches[1]) != 1 {
		t.Fatalf("unexpected batches %d", len(batches))
	}
}
