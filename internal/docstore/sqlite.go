package docstore

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Synthetic request-unit charges. Writes cost more than reads and both scale
// with document size; queries pay a base cost plus a per-result cost.
const (
	chargePointRead   = 1.0
	chargeWriteBase   = 5.0
	chargePerKB       = 1.0
	chargeQueryBase   = 2.5
	chargePerResult   = 0.1
	chargeCountBase   = 2.5
	defaultPageSize   = 100
	maxPageSize       = 1000
	documentTableName = "documents"
)

// document is the row backing every Item. The composite primary key
// (collection, partition_key, id) enforces uniqueness per partition. Body is
// bound as text so SQLite's JSON functions never read it as JSONB.
type document struct {
	Collection   string `gorm:"column:collection;type:varchar(64);primaryKey"`
	PartitionKey string `gorm:"column:partition_key;type:varchar(255);primaryKey"`
	ID           string `gorm:"column:id;type:varchar(255);primaryKey"`
	ETag         string `gorm:"column:etag;type:varchar(64);not null"`
	Body         string `gorm:"column:body;type:text;not null"`
	Timestamp    int64  `gorm:"column:ts;not null;index"`
}

func (document) TableName() string { return documentTableName }

// Options configures Open.
type Options struct {
	// Trace enables the GORM OpenTelemetry plugin.
	Trace bool
	// Silent disables GORM's own query logging.
	Silent bool
}

// Open opens (or creates) the SQLite database backing the store, applies
// PRAGMAs and pool settings, and migrates the documents table.
func Open(path string, opts Options) (*gorm.DB, error) {
	// Fail early if the parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	cfg := &gorm.Config{TranslateError: true}
	if opts.Silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if opts.Trace {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, err
		}
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the documents table and its secondary indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&document{}); err != nil {
		return err
	}
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_documents_created
		ON documents (collection, json_extract(body, '$.createdAt'))`).Error
}

// SQLiteContainer is a Container over one collection of the documents table.
type SQLiteContainer struct {
	db       *gorm.DB
	name     string
	pageSize int
	now      func() time.Time
}

// NewSQLiteContainer returns a container for collection name. pageSize is the
// default page size for queries; values outside [1, 1000] use 100.
func NewSQLiteContainer(db *gorm.DB, name string, pageSize int) *SQLiteContainer {
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return &SQLiteContainer{db: db, name: name, pageSize: pageSize, now: time.Now}
}

func (s *SQLiteContainer) Name() string { return s.name }

func (s *SQLiteContainer) Read(ctx context.Context, id, pk string) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	var doc document
	err := s.db.WithContext(ctx).
		Where("collection = ? AND partition_key = ? AND id = ?", s.name, pk, id).
		Take(&doc).Error
	if err != nil {
		return Response{}, s.fail(ctx, "read", err)
	}
	return Response{Item: doc.item(), Charge: chargePointRead * sizeFactor(len(doc.Body))}, nil
}

func (s *SQLiteContainer) Create(ctx context.Context, item Item) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	doc := s.newDocument(item)
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return Response{}, s.fail(ctx, "create", err)
	}
	return Response{Item: doc.item(), Charge: writeCharge(len(doc.Body))}, nil
}

func (s *SQLiteContainer) Replace(ctx context.Context, item Item, ifMatch string) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	doc := s.newDocument(item)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&document{}).
			Where("collection = ? AND partition_key = ? AND id = ?", s.name, doc.PartitionKey, doc.ID)
		if ifMatch != "" {
			q = q.Where("etag = ?", ifMatch)
		}
		res := q.Updates(map[string]any{"etag": doc.ETag, "body": doc.Body, "ts": doc.Timestamp})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
		var n int64
		if err := tx.Model(&document{}).
			Where("collection = ? AND partition_key = ? AND id = ?", s.name, doc.PartitionKey, doc.ID).
			Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrPreconditionFailed
	})
	if err != nil {
		return Response{}, s.fail(ctx, "replace", err)
	}
	return Response{Item: doc.item(), Charge: writeCharge(len(doc.Body))}, nil
}

func (s *SQLiteContainer) Upsert(ctx context.Context, item Item) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	doc := s.newDocument(item)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "partition_key"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"etag", "body", "ts"}),
	}).Create(&doc).Error
	if err != nil {
		return Response{}, s.fail(ctx, "upsert", err)
	}
	return Response{Item: doc.item(), Charge: writeCharge(len(doc.Body))}, nil
}

func (s *SQLiteContainer) Delete(ctx context.Context, id, pk string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	res := s.db.WithContext(ctx).
		Where("collection = ? AND partition_key = ? AND id = ?", s.name, pk, id).
		Delete(&document{})
	if res.Error != nil {
		return 0, s.fail(ctx, "delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, wrap("delete", s.name, ErrNotFound)
	}
	return chargeWriteBase, nil
}

func (s *SQLiteContainer) Query(ctx context.Context, req QueryRequest) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	tr, err := Translate(req.Text, req.Params)
	if err != nil {
		return Page{}, wrap("query", s.name, err)
	}

	hash := queryHash(s.name, req)
	offset := req.Skip
	if req.Continuation != "" {
		if offset, err = decodeToken(req.Continuation, hash); err != nil {
			return Page{}, wrap("query", s.name, err)
		}
	}
	if offset < 0 {
		offset = 0
	}

	size := req.MaxItems
	if size <= 0 {
		size = s.pageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	limit := req.Limit
	if tr.Top > 0 && (limit == 0 || tr.Top < limit) {
		limit = tr.Top
	}
	if limit > 0 {
		if remaining := limit - offset; remaining < size {
			size = remaining
		}
		if size <= 0 {
			return Page{Charge: chargeQueryBase, Offset: offset}, nil
		}
	}

	where, args := s.baseWhere(req.PartitionKey, tr)
	sql := "SELECT d.collection, d.partition_key, d.id, d.etag, d.body, d.ts FROM documents AS d WHERE " +
		where + " ORDER BY " + tr.OrderBy + " LIMIT ? OFFSET ?"
	args = append(args, size+1, offset)

	var rows []document
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return Page{}, s.fail(ctx, "query", err)
	}

	page := Page{Offset: offset}
	more := len(rows) > size
	if more {
		rows = rows[:size]
	}
	if more && (limit == 0 || offset+size < limit) {
		page.Continuation = encodeToken(offset+size, hash)
	}
	page.Items = make([]Item, 0, len(rows))
	for _, r := range rows {
		page.Items = append(page.Items, r.item())
	}
	page.Charge = chargeQueryBase + chargePerResult*float64(len(rows))
	return page, nil
}

func (s *SQLiteContainer) Count(ctx context.Context, req QueryRequest) (int, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	tr, err := Translate(req.Text, req.Params)
	if err != nil {
		return 0, 0, wrap("count", s.name, err)
	}
	where, args := s.baseWhere(req.PartitionKey, tr)
	var n int64
	if err := s.db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM documents AS d WHERE "+where, args...).
		Scan(&n).Error; err != nil {
		return 0, 0, s.fail(ctx, "count", err)
	}
	return int(n), chargeCountBase, nil
}

func (s *SQLiteContainer) baseWhere(pk string, tr Translated) (string, []any) {
	where := "d.collection = ?"
	args := []any{s.name}
	if pk != "" {
		where += " AND d.partition_key = ?"
		args = append(args, pk)
	}
	if tr.Where != "" {
		where += " AND " + tr.Where
		args = append(args, tr.Args...)
	}
	return where, args
}

func (s *SQLiteContainer) newDocument(item Item) document {
	return document{
		Collection:   s.name,
		PartitionKey: item.PartitionKey,
		ID:           item.ID,
		ETag:         uuid.NewString(),
		Body:         string(item.Body),
		Timestamp:    s.now().Unix(),
	}
}

// fail classifies a driver error. Context errors take precedence so that a
// canceled call is never reported as a backend failure.
func (s *SQLiteContainer) fail(ctx context.Context, op string, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return wrap(op, s.name, classify(err))
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPreconditionFailed):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	switch {
	case strings.Contains(low, "unique constraint failed"),
		strings.Contains(low, "constraint failed: unique"):
		return ErrConflict
	case strings.Contains(low, "database is locked"),
		strings.Contains(low, "sqlite_busy"),
		strings.Contains(low, "database table is locked"):
		return errors.Join(ErrThrottled, err)
	case strings.Contains(low, "no such function"),
		strings.Contains(low, "syntax error"),
		strings.Contains(low, "malformed json"):
		return errors.Join(ErrBadRequest, err)
	}
	return errors.Join(ErrUnavailable, err)
}

func (d document) item() Item {
	return Item{ID: d.ID, PartitionKey: d.PartitionKey, ETag: d.ETag, Body: []byte(d.Body), Timestamp: d.Timestamp}
}

func sizeFactor(n int) float64 {
	return math.Max(1, math.Ceil(float64(n)/1024))
}

func writeCharge(n int) float64 {
	return chargeWriteBase + chargePerKB*(sizeFactor(n)-1)
}
