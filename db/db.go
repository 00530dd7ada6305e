package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inconshreveable/log15/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("db: not found")

// Store wraps the shared connection pool. The schema is owned elsewhere;
// Store never migrates it.
type Store struct {
	DB  *gorm.DB
	Now func() time.Time
	Loc *time.Location
}

func Open(dsn string, loc *time.Location, log log15.Logger) (*Store, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.New(printfLogger{log}, logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("Open: failed to connect to DB: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Info("connected to DB")
	return New(gdb, loc), nil
}

func New(gdb *gorm.DB, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{DB: gdb, Now: time.Now, Loc: loc}
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// today is the current calendar day in the store's location, as a UTC date
// so it binds cleanly to DATE columns.
func (s *Store) today() time.Time {
	now := s.Now().In(s.Loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

type printfLogger struct{ log log15.Logger }

func (p printfLogger) Printf(format string, args ...any) {
	p.log.Warn(fmt.Sprintf(format, args...), "component", "gorm")
}
