package worker

import (
	"context"
	"database/sql"
	"time"

	"uploadqueue/internal/store"
	"uploadqueue/internal/upload"

	"github.com/stretchr/testify/mock"
)

// callLog records the order in which collaborators are called across mocks.
type callLog struct {
	calls []string
}

func (l *callLog) add(name string) {
	if l != nil {
		l.calls = append(l.calls, name)
	}
}

type MockStore struct {
	mock.Mock
	log *callLog
}

func (m *MockStore) GetDailyCount(ctx context.Context, day time.Time) (int, error) {
	m.log.add("GetDailyCount")
	args := m.Called(ctx, day)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) IncrementDailyCount(ctx context.Context, tx store.DBTransaction, day time.Time) error {
	m.log.add("IncrementDailyCount")
	args := m.Called(ctx, tx, day)
	return args.Error(0)
}

func (m *MockStore) ClaimPending(ctx context.Context, limit int) ([]store.QueueJob, error) {
	m.log.add("ClaimPending")
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.QueueJob), args.Error(1)
}

func (m *MockStore) ResolveActNames(ctx context.Context, actIDs []string) (map[string]string, error) {
	args := m.Called(ctx, actIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockStore) ResolveUserNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockStore) MarkUploaded(ctx context.Context, tx store.DBTransaction, jobID string, resultURL string) error {
	m.log.add("MarkUploaded")
	args := m.Called(ctx, tx, jobID, resultURL)
	return args.Error(0)
}

func (m *MockStore) MarkFailed(ctx context.Context, tx store.DBTransaction, jobID string, errMsg string) error {
	m.log.add("MarkFailed")
	args := m.Called(ctx, tx, jobID, errMsg)
	return args.Error(0)
}

func (m *MockStore) CreateVideo(ctx context.Context, tx store.DBTransaction, video *store.VideoRecord) error {
	m.log.add("CreateVideo")
	args := m.Called(ctx, tx, video)
	return args.Error(0)
}

func (m *MockStore) BeginTx(ctx context.Context) (store.Tx, error) {
	m.log.add("BeginTx")
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(store.Tx), args.Error(1)
}

type MockTx struct {
	mock.Mock
	log *callLog
}

func (m *MockTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (m *MockTx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (m *MockTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (m *MockTx) Commit() error {
	m.log.add("Commit")
	return m.Called().Error(0)
}

func (m *MockTx) Rollback() error {
	m.log.add("Rollback")
	return m.Called().Error(0)
}

type MockFetcher struct {
	mock.Mock
	log *callLog
}

func (m *MockFetcher) Fetch(ctx context.Context, sourceURL, suggestedName string) (string, error) {
	m.log.add("Fetch")
	args := m.Called(ctx, sourceURL, suggestedName)
	return args.String(0), args.Error(1)
}

func (m *MockFetcher) Release(ctx context.Context, localPath string) {
	m.log.add("Release")
	m.Called(ctx, localPath)
}

func (m *MockFetcher) DeleteRemote(ctx context.Context, sourceURL string) error {
	m.log.add("DeleteRemote")
	args := m.Called(ctx, sourceURL)
	return args.Error(0)
}

type MockConnector struct {
	mock.Mock
}

func (m *MockConnector) Connect(ctx context.Context) (upload.Uploader, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(upload.Uploader), args.Error(1)
}

type MockUploader struct {
	mock.Mock
	log *callLog
}

func (m *MockUploader) Upload(ctx context.Context, req upload.Request) (string, error) {
	m.log.add("Upload")
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}
