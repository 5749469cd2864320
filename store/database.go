package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// storedObject is one row of the backing table. Objects from different
// stores share the table, partitioned by scope.
type storedObject struct {
	Scope     string `gorm:"primaryKey;size:190"`
	Key       string `gorm:"primaryKey;size:400"`
	Value     []byte
	UpdatedAt time.Time
}

// TableName keeps the table name stable regardless of struct naming.
func (storedObject) TableName() string {
	return "data_docs_objects"
}

// DatabaseBackend stores objects as rows in a SQL database. Useful when
// validation artifacts should live next to the warehouse they describe
// instead of on a filesystem or bucket.
type DatabaseBackend struct {
	Name     string   // name of the store this backend serves
	DSN      string   // database source name, e.g. a sqlite file path
	Scope    string   // row scope separating stores sharing one table
	DB       *gorm.DB // database handle; lazily opened when nil
	openOnce sync.Once
	openErr  error
}

// db returns the database handle, opening and migrating on first use when
// one was not injected.
func (d *DatabaseBackend) db() (*gorm.DB, error) {
	if d.DB != nil {
		return d.DB, nil
	}
	d.openOnce.Do(func() {
		db, err := gorm.Open(sqlite.Open(d.DSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			d.openErr = fmt.Errorf("open database: %w", err)
			return
		}
		sqlDB, err := db.DB()
		if err != nil {
			d.openErr = err
			return
		}
		// sqlite allows one writer at a time; a single connection
		// serializes access instead of surfacing SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
		if err := db.AutoMigrate(&storedObject{}); err != nil {
			d.openErr = fmt.Errorf("migrate database: %w", err)
			return
		}
		d.DB = db
	})
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.DB, nil
}

// GetName returns the name of the store this backend serves.
func (d *DatabaseBackend) GetName() string {
	return d.Name
}

func (d *DatabaseBackend) scope() string {
	if d.Scope != "" {
		return d.Scope
	}
	return d.Name
}

// Get reads the row for the key.
func (d *DatabaseBackend) Get(ctx context.Context, key Key) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	db, err := d.db()
	if err != nil {
		return nil, err
	}
	var row storedObject
	err = db.WithContext(ctx).
		Where("scope = ? AND key = ?", d.scope(), key.String()).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return row.Value, nil
}

// Put upserts the row for the key.
func (d *DatabaseBackend) Put(ctx context.Context, key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	db, err := d.db()
	if err != nil {
		return err
	}
	row := storedObject{Scope: d.scope(), Key: key.String(), Value: data, UpdatedAt: time.Now().UTC()}
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		logrus.WithError(err).Debug("error upserting object row")
	}
	return err
}

// Delete removes the row or returns ErrNotFound.
func (d *DatabaseBackend) Delete(ctx context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	db, err := d.db()
	if err != nil {
		return err
	}
	result := db.WithContext(ctx).
		Where("scope = ? AND key = ?", d.scope(), key.String()).
		Delete(&storedObject{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return nil
}

// List returns the keys under the prefix, sorted.
func (d *DatabaseBackend) List(ctx context.Context, prefix Key) ([]Key, error) {
	db, err := d.db()
	if err != nil {
		return nil, err
	}
	query := db.WithContext(ctx).Model(&storedObject{}).Where("scope = ?", d.scope())
	if len(prefix) > 0 {
		query = query.Where("key LIKE ?", prefix.String()+"/%")
	}
	var names []string
	if err := query.Pluck("key", &names).Error; err != nil {
		return nil, err
	}
	keys := []Key{}
	for _, name := range names {
		key, err := ParseKey(name)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}

// GetURL returns nil: rows have no externally reachable address.
func (d *DatabaseBackend) GetURL(Key) *url.URL {
	return nil
}
