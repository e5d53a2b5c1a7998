package db

import (
	"context"
	"fmt"
	"time"

	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

type LogConf struct {
	Level         string
	SlowThreshold time.Duration
}

type Config struct {
	Host    string
	Port    int
	User    string
	PW      string
	DBName  string
	LogConf LogConf
}

type txKey struct{}

type Datastore struct {
	db *gorm.DB
}

var datastore *Datastore

func InitPostgres(ctx context.Context, conf *Config) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		conf.Host, conf.User, conf.PW, conf.DBName, conf.Port)

	ins, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         newGormLogger(conf.LogConf),
		TranslateError: true,
	})
	if err != nil {
		logger.Fatalf(ctx, "open postgres fail err: %+v", err)
	}

	if err := ins.Use(tracing.NewPlugin()); err != nil {
		logger.Errorf(ctx, "install gorm tracing plugin err: %+v", err)
	}

	sqlDB, err := ins.DB()
	if err != nil {
		logger.Fatalf(ctx, "get sql db fail err: %+v", err)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		logger.Fatalf(ctx, "ping postgres fail err: %+v", err)
	}

	datastore = &Datastore{db: ins}
	logger.Infof(ctx, "postgres connected host: %s db: %s", conf.Host, conf.DBName)
}

func ClosePostgres(ctx context.Context) {
	if datastore == nil {
		return
	}
	sqlDB, err := datastore.db.DB()
	if err != nil {
		logger.Errorf(ctx, "close postgres get db err: %+v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Errorf(ctx, "close postgres err: %+v", err)
	}
}

func DB() *Datastore {
	return datastore
}

func NewDatastore(ins *gorm.DB) *Datastore {
	return &Datastore{db: ins}
}

func (d *Datastore) DBIns() *gorm.DB {
	return d.db
}

// DBWithContext returns the transaction bound to ctx by ExecTx, or a fresh
// session on the pool.
func (d *Datastore) DBWithContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return d.db.WithContext(ctx)
}

// ExecTx runs fn in one transaction. Repos called with txCtx join it; nested
// ExecTx calls become savepoints.
func (d *Datastore) ExecTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return d.DBWithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

type gormWriter struct{}

func (gormWriter) Printf(format string, args ...any) {
	logger.Infof(context.Background(), format, args...)
}

func newGormLogger(conf LogConf) glogger.Interface {
	level := glogger.Warn
	switch conf.Level {
	case "debug":
		level = glogger.Info
	case "error":
		level = glogger.Error
	}
	slow := conf.SlowThreshold
	if slow == 0 {
		slow = 500 * time.Millisecond
	}
	return glogger.New(gormWriter{}, glogger.Config{
		SlowThreshold:             slow,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}
