package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/squadran/squadran-api/config"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// documentRow is the single physical table behind the remote document store:
// one JSONB document per (collection, doc_id).
type documentRow struct {
	Collection string         `gorm:"primaryKey;size:64"`
	DocID      string         `gorm:"primaryKey;size:128;column:doc_id"`
	Data       datatypes.JSON `gorm:"not null"`
	UpdatedAt  time.Time
}

func (documentRow) TableName() string {
	return "documents"
}

// GORMStore is the remote multi-tenant backend: collections of JSON
// documents stored in PostgreSQL and queried with JSONB containment.
type GORMStore struct {
	db *gorm.DB
}

// StartGORM initializes a GORM connection to PostgreSQL
func StartGORM() (*GORMStore, error) {
	getEnv, err := config.Get()
	if err != nil {
		return nil, err
	}

	// Build DSN (Data Source Name)
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		getEnv.DB_HOST,
		getEnv.DB_USER_NAME,
		getEnv.DB_PASSWORD,
		getEnv.DB_NAME,
		getEnv.DB_PORT,
		getEnv.DB_SSL_MODE,
	)

	// Configure GORM logger
	gormLogger := logger.Default.LogMode(logger.Info)
	if getEnv.GO_ENV == "production" {
		gormLogger = logger.Default.LogMode(logger.Error)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: false,
		PrepareStmt:            true,
	})
	if err != nil {
		log.Println("Unable to connect to PostgreSQL with GORM:", err)
		return nil, err
	}

	// Get underlying *sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Successfully connected to PostgreSQL Database with GORM.")

	return &GORMStore{db: db}, nil
}

// Init creates the documents table and its JSONB index.
func (s *GORMStore) Init() error {
	log.Println("Running GORM AutoMigrate for the document store...")

	if err := s.db.AutoMigrate(&documentRow{}); err != nil {
		log.Println("Error running AutoMigrate:", err)
		return err
	}

	// Containment queries need a GIN index; AutoMigrate cannot express it.
	if err := s.db.Exec(
		`CREATE INDEX IF NOT EXISTS idx_documents_data ON documents USING GIN (data jsonb_path_ops)`,
	).Error; err != nil {
		return err
	}

	log.Println("GORM AutoMigrate completed successfully!")
	return nil
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	log.Println("Closing GORM PostgreSQL connection...")
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck verifies the database connection is alive
func (s *GORMStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (s *GORMStore) Get(ctx context.Context, collection, id string, dest interface{}) error {
	var row documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(row.Data, dest)
}

func (s *GORMStore) List(ctx context.Context, collection string, dest interface{}, filters ...Filter) error {
	q := s.db.WithContext(ctx).Where("collection = ?", collection)
	q, err := applyJSONBFilters(q, filters)
	if err != nil {
		return err
	}

	var rows []documentRow
	if err := q.Find(&rows).Error; err != nil {
		return err
	}

	docs := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, json.RawMessage(row.Data))
	}
	combined, err := json.Marshal(docs)
	if err != nil {
		return err
	}
	return json.Unmarshal(combined, dest)
}

func (s *GORMStore) Put(ctx context.Context, collection, id string, doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	row := documentRow{
		Collection: collection,
		DocID:      id,
		Data:       datatypes.JSON(data),
		UpdatedAt:  time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
}

func (s *GORMStore) Delete(ctx context.Context, collection, id string) error {
	return s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		Delete(&documentRow{}).Error
}

func (s *GORMStore) DeleteWhere(ctx context.Context, collection string, filters ...Filter) error {
	q := s.db.WithContext(ctx).Where("collection = ?", collection)
	q, err := applyJSONBFilters(q, filters)
	if err != nil {
		return err
	}
	return q.Delete(&documentRow{}).Error
}

// Mutate takes a FOR UPDATE row lock for the duration of the read-modify-
// write, so concurrent mutations of the same document serialize instead of
// losing updates.
func (s *GORMStore) Mutate(ctx context.Context, collection, id string, fn func(raw []byte) (interface{}, error)) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row documentRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ? AND doc_id = ?", collection, id).
			First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		updated, err := fn(row.Data)
		if err != nil {
			return err
		}
		data, err := json.Marshal(updated)
		if err != nil {
			return err
		}

		return tx.Model(&documentRow{}).
			Where("collection = ? AND doc_id = ?", collection, id).
			Updates(map[string]interface{}{
				"data":       datatypes.JSON(data),
				"updated_at": time.Now().UTC(),
			}).Error
	})
}

func (s *GORMStore) RunInTransaction(ctx context.Context, fn func(tx Storage) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GORMStore{db: tx})
	})
}

// applyJSONBFilters translates adapter filters into JSONB predicates:
// equality becomes document containment (works for strings, numbers and
// booleans alike), membership becomes containment on the array field.
func applyJSONBFilters(q *gorm.DB, filters []Filter) (*gorm.DB, error) {
	for _, f := range filters {
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		switch f.Op {
		case OpEq:
			probe, err := json.Marshal(map[string]json.RawMessage{f.Field: value})
			if err != nil {
				return nil, err
			}
			q = q.Where("data @> ?::jsonb", string(probe))
		case OpContains:
			q = q.Where("data -> ? @> ?::jsonb", f.Field, string(value))
		default:
			return nil, fmt.Errorf("unsupported filter op %q", f.Op)
		}
	}
	return q, nil
}
