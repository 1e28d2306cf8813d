package service_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/EvershineMarbles/EvershineBackend/internal/model"
	"github.com/EvershineMarbles/EvershineBackend/internal/repository"
	"github.com/EvershineMarbles/EvershineBackend/internal/storage/db"
)

// fakeDB runs transactions inline. Query methods are never reached because
// the repositories are mocked.
type fakeDB struct {
	txCount int
}

func (d *fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("unexpected Exec")
}

func (d *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("unexpected Query")
}

func (d *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("unexpected QueryRow")
}

func (d *fakeDB) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("unexpected CopyFrom")
}

func (d *fakeDB) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("unexpected SendBatch")
}

func (d *fakeDB) WithTx(_ context.Context, txFunc func(db.DB) error) error {
	d.txCount++
	return txFunc(d)
}

type mockProductRepo struct {
	mock.Mock
}

func (m *mockProductRepo) WithDB(db.DB) repository.ProductRepository { return m }

func (m *mockProductRepo) InsertProduct(ctx context.Context, product model.Product) (model.Product, error) {
	args := m.Called(ctx, product)
	if fn, ok := args.Get(0).(func(context.Context, model.Product) model.Product); ok {
		return fn(ctx, product), args.Error(1)
	}
	return args.Get(0).(model.Product), args.Error(1)
}

func (m *mockProductRepo) FindProductByKey(ctx context.Context, key string) (model.Product, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(model.Product), args.Error(1)
}

func (m *mockProductRepo) LockProductByKey(ctx context.Context, key string) (model.Product, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(model.Product), args.Error(1)
}

func (m *mockProductRepo) ListProducts(ctx context.Context, params repository.ListProductsParams) ([]model.Product, error) {
	args := m.Called(ctx, params)
	products, _ := args.Get(0).([]model.Product)
	return products, args.Error(1)
}

func (m *mockProductRepo) UpdateProductByKey(ctx context.Context, key string, patch model.ProductPatch, updatedAt time.Time) (model.Product, error) {
	args := m.Called(ctx, key, patch, updatedAt)
	if fn, ok := args.Get(0).(func(context.Context, string, model.ProductPatch, time.Time) model.Product); ok {
		return fn(ctx, key, patch, updatedAt), args.Error(1)
	}
	return args.Get(0).(model.Product), args.Error(1)
}

func (m *mockProductRepo) DeleteProductByKey(ctx context.Context, key string) (model.Product, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(model.Product), args.Error(1)
}

type mockOutboxRepo struct {
	mock.Mock
}

func (m *mockOutboxRepo) WithDB(db.DB) repository.OutboxMsgRepository { return m }

func (m *mockOutboxRepo) CreateOutboxMsg(ctx context.Context, params repository.CreateOutboxMsgParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *mockOutboxRepo) ListUnprocessedOutboxMsgs(ctx context.Context, params repository.ListUnprocessedOutboxMsgsParams) ([]repository.ListUnprocessedOutboxMsgsResult, error) {
	args := m.Called(ctx, params)
	msgs, _ := args.Get(0).([]repository.ListUnprocessedOutboxMsgsResult)
	return msgs, args.Error(1)
}

func (m *mockOutboxRepo) BulkUpdateOutboxMsgs(ctx context.Context, params repository.BulkUpdateOutboxMsgsParams) error {
	return m.Called(ctx, params).Error(0)
}

// topics returns the topics of the recorded CreateOutboxMsg calls.
func (m *mockOutboxRepo) topics() []string {
	var topics []string
	for _, call := range m.Calls {
		if call.Method == "CreateOutboxMsg" {
			topics = append(topics, call.Arguments.Get(1).(repository.CreateOutboxMsgParams).Topic)
		}
	}
	return topics
}

type mockImageStore struct {
	mock.Mock
}

func (m *mockImageStore) UploadAll(ctx context.Context, files []model.ImageFile) ([]string, error) {
	args := m.Called(ctx, files)
	urls, _ := args.Get(0).([]string)
	return urls, args.Error(1)
}

func (m *mockImageStore) DeleteAll(ctx context.Context, urls []string) {
	m.Called(ctx, urls)
}

type fixedKeys string

func (k fixedKeys) Next() string { return string(k) }
