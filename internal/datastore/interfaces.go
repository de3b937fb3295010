// Package datastore persists detector decisions and evaluation runs with GORM.
package datastore

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/birdnet-spec/internal/conf"
	"github.com/tphakala/birdnet-spec/internal/errors"
	"github.com/tphakala/birdnet-spec/internal/logger"
)

// Interface abstracts the underlying database implementation
type Interface interface {
	Open() error
	SaveSegments(ctx context.Context, segments []Segment) error
	GetSegments(ctx context.Context, file string) ([]Segment, error)
	CountSegments(ctx context.Context, bird bool) (int64, error)
	SaveEvaluationRun(ctx context.Context, run *EvaluationRun) error
	GetEvaluationRun(ctx context.Context, id string) (EvaluationRun, error)
	Close() error
}

// DataStore implements Interface on a GORM database
type DataStore struct {
	DB *gorm.DB
}

// New returns the store selected by settings, or nil when output is disabled.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// SaveSegments inserts segments in a single transaction. Re-processing a
// file replaces the stored rows for the same chunk.
func (ds *DataStore) SaveSegments(ctx context.Context, segments []Segment) error {
	if err := ds.ready(); err != nil {
		return err
	}
	if len(segments) == 0 {
		return nil
	}

	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range segments {
			if err := tx.Where("file = ? AND chunk_index = ?", segments[i].File, segments[i].ChunkIndex).
				Delete(&Segment{}).Error; err != nil {
				return err
			}
		}
		return tx.Create(&segments).Error
	})
	if err != nil {
		return dbError(err, "save_segments").
			Context("file", segments[0].File).
			Context("count", len(segments)).
			Build()
	}
	return nil
}

// GetSegments returns the stored segments of file ordered by chunk index
func (ds *DataStore) GetSegments(ctx context.Context, file string) ([]Segment, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	var segments []Segment
	if err := ds.DB.WithContext(ctx).
		Where("file = ?", file).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "chunk_index"}}).
		Find(&segments).Error; err != nil {
		return nil, dbError(err, "get_segments").Context("file", file).Build()
	}
	return segments, nil
}

// CountSegments counts stored segments with the given decision
func (ds *DataStore) CountSegments(ctx context.Context, bird bool) (int64, error) {
	if err := ds.ready(); err != nil {
		return 0, err
	}
	var count int64
	if err := ds.DB.WithContext(ctx).Model(&Segment{}).Where("bird = ?", bird).Count(&count).Error; err != nil {
		return 0, dbError(err, "count_segments").Build()
	}
	return count, nil
}

// SaveEvaluationRun inserts run, assigning an ID when it has none
func (ds *DataStore) SaveEvaluationRun(ctx context.Context, run *EvaluationRun) error {
	if err := ds.ready(); err != nil {
		return err
	}
	if err := ds.DB.WithContext(ctx).Create(run).Error; err != nil {
		return dbError(err, "save_evaluation_run").Context("model_dir", run.ModelDir).Build()
	}
	GetLogger().Debug("evaluation run stored", logger.String("run_id", run.ID))
	return nil
}

// GetEvaluationRun loads a run by ID
func (ds *DataStore) GetEvaluationRun(ctx context.Context, id string) (EvaluationRun, error) {
	var run EvaluationRun
	if err := ds.ready(); err != nil {
		return run, err
	}
	if err := ds.DB.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		category := errors.CategoryDatabase
		if errors.Is(err, gorm.ErrRecordNotFound) {
			category = errors.CategoryNotFound
		}
		return run, dbError(err, "get_evaluation_run").
			Category(category).
			Context("run_id", id).
			Build()
	}
	return run, nil
}

// Close closes the underlying database connection
func (ds *DataStore) Close() error {
	if err := ds.ready(); err != nil {
		return err
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "get_sql_db").Build()
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close").Build()
	}
	return nil
}

func (ds *DataStore) ready() error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// performAutoMigration creates or updates the tables
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Segment{}, &EvaluationRun{}); err != nil {
		return dbError(fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err), "auto_migrate").
			Context("db_type", dbType).
			Build()
	}
	if debug {
		GetLogger().Debug("database connection initialized",
			logger.String("db_type", dbType),
			logger.String("connection", connectionInfo))
	}
	return nil
}

func dbError(err error, operation string) *errors.ErrorBuilder {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)
}
