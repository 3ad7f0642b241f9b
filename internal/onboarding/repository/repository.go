package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 错误定义
var (
	ErrNotFound         = errors.New("record not found")
	ErrStoreUnavailable = errors.New("database not reachable")
	ErrStoreRejected    = errors.New("database rejected the operation")
)

// Repositories 仓库集合
type Repositories struct {
	db        *gorm.DB
	Template  *TemplateRepository
	Case      *CaseRepository
	Task      *TaskRepository
	Checklist *ChecklistRepository
	Activity  *ActivityRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:        db,
		Template:  NewTemplateRepository(db),
		Case:      NewCaseRepository(db),
		Task:      NewTaskRepository(db),
		Checklist: NewChecklistRepository(db),
		Activity:  NewActivityRepository(db),
	}
}

// DB returns the underlying handle.
func (r *Repositories) DB() *gorm.DB {
	return r.db
}

// Transaction runs fn against repositories bound to a single transaction.
// Errors returned by fn are passed through untouched; begin/commit failures
// are classified.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	var fnErr error
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(NewRepositories(tx))
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return classify(err)
}

// Ping checks the store is reachable.
func (r *Repositories) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return classify(err)
	}
	return classify(sqlDB.PingContext(ctx))
}

// classify maps driver errors onto the store error taxonomy, keeping the
// original error in the chain for logging.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrStoreRejected) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if isUnavailable(err) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrStoreRejected, err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// forUpdate adds a row lock on engines that support SELECT ... FOR UPDATE.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
