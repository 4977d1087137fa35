package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	cfg "github.com/feichai0017/rag-tuner/config"
	"github.com/feichai0017/rag-tuner/internal/models"
)

var ErrNotFound = errors.New("document not found")

// DocumentRepo 文档元数据仓库
type DocumentRepo interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id int64) (*models.Document, error)
	GetByHash(ctx context.Context, hash string) (*models.Document, error)
	List(ctx context.Context, filter ListFilter) ([]*models.Document, int, error)
	Update(ctx context.Context, doc *models.Document) error
	UpdateStatus(ctx context.Context, id int64, status models.DocumentStatus, errMsg string) error
	Delete(ctx context.Context, id int64) error
}

// ListFilter 列表查询条件
type ListFilter struct {
	Search string
	Status models.DocumentStatus
	Limit  int
	Offset int
}

// NewDB 建立 Postgres 连接
func NewDB() (*bun.DB, error) {
	dbCfg := cfg.GetDatabaseConfig()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dbCfg.DSN)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if dbCfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// CreateSchema 建表, 启动时幂等执行
func CreateSchema(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*models.Document)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

type bunDocumentRepo struct {
	db *bun.DB
}

func NewDocumentRepo(db *bun.DB) DocumentRepo {
	return &bunDocumentRepo{db: db}
}

func (r *bunDocumentRepo) Create(ctx context.Context, doc *models.Document) error {
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	_, err := r.db.NewInsert().Model(doc).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (r *bunDocumentRepo) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	doc := new(models.Document)
	err := r.db.NewSelect().Model(doc).Where("d.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return doc, nil
}

func (r *bunDocumentRepo) GetByHash(ctx context.Context, hash string) (*models.Document, error) {
	doc := new(models.Document)
	err := r.db.NewSelect().Model(doc).Where("d.hash = ?", hash).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document by hash: %w", err)
	}
	return doc, nil
}

func (r *bunDocumentRepo) List(ctx context.Context, filter ListFilter) ([]*models.Document, int, error) {
	var docs []*models.Document
	q := r.db.NewSelect().Model(&docs)

	if filter.Search != "" {
		q = q.Where("d.filename ILIKE ?", "%"+filter.Search+"%")
	}
	if filter.Status != "" {
		q = q.Where("d.status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}

	total, err := q.Order("d.created_at DESC").ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, total, nil
}

func (r *bunDocumentRepo) Update(ctx context.Context, doc *models.Document) error {
	doc.UpdatedAt = time.Now()
	res, err := r.db.NewUpdate().Model(doc).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *bunDocumentRepo) UpdateStatus(ctx context.Context, id int64, status models.DocumentStatus, errMsg string) error {
	res, err := r.db.NewUpdate().
		Model((*models.Document)(nil)).
		Set("status = ?", status).
		Set("error_message = ?", errMsg).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *bunDocumentRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().
		Model((*models.Document)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
