package data

import (
	"context"
	"fmt"
	"time"

	"github.com/sober-studio/blog-api-go-kratos/internal/conf"
	"github.com/sober-studio/blog-api-go-kratos/internal/data/model"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/idgen"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/idgen/snowflake"

	"github.com/glebarez/sqlite"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewDB,
	NewRedis,
	NewIDGenerator,
	NewUserRepo,
	NewPrincipalLoader,
	NewRevocationStore,
	NewRevocationRegistry,
	NewRevocationLimiter,
)

// Data .
// 注意：所有需要关闭的资源必须在 cleanup 中显式处理
type Data struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewData .
func NewData(logger log.Logger, db *gorm.DB, rdb *redis.Client, _ idgen.IDGenerator) (*Data, func(), error) {
	helper := log.NewHelper(log.With(logger, "module", "data"))
	cleanup := func() {
		helper.Info("closing the data resources")
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				helper.Error(err)
			}
		}
		if err := rdb.Close(); err != nil {
			helper.Error(err)
		}
	}
	return &Data{db: db, rdb: rdb}, cleanup, nil
}

// NewDB 初始化数据库 (GORM) 并迁移撤销相关的表
func NewDB(c *conf.Data, l log.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch c.Database.Driver {
	case "mysql":
		dialector = mysql.Open(c.Database.Source)
	case "sqlite":
		// 单机部署与本地调试
		dialector = sqlite.Open(c.Database.Source)
	default:
		dialector = postgres.Open(c.Database.Source)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(l),
	})
	if err != nil {
		return nil, fmt.Errorf("failed opening connection to database: %w", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.RevokedToken{}); err != nil {
		return nil, fmt.Errorf("failed migrating database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql DB from gorm: %w", err)
	}
	maxIdle, maxOpen, lifetime := 10, 100, time.Hour
	if c.Database.MaxIdleConns > 0 {
		maxIdle = int(c.Database.MaxIdleConns)
	}
	if c.Database.MaxOpenConns > 0 {
		maxOpen = int(c.Database.MaxOpenConns)
	}
	if c.Database.ConnMaxLifetime != nil {
		lifetime = c.Database.ConnMaxLifetime.AsDuration()
	}
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(lifetime)
	return db, nil
}

// NewRedis 初始化 Redis 客户端，启动时重试 3 次
func NewRedis(c *conf.Data, l log.Logger) (*redis.Client, error) {
	var readTimeout, writeTimeout time.Duration
	if c.Redis.ReadTimeout != nil {
		readTimeout = c.Redis.ReadTimeout.AsDuration()
	}
	if c.Redis.WriteTimeout != nil {
		writeTimeout = c.Redis.WriteTimeout.AsDuration()
	}
	poolSize := 10
	if c.Redis.PoolSize > 0 {
		poolSize = int(c.Redis.PoolSize)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         c.Redis.Addr,
		Password:     c.Redis.Password,
		DB:           int(c.Redis.Database),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		PoolSize:     poolSize,
	})

	helper := log.NewHelper(l)
	var err error
	for i := 0; i < 3; i++ {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return rdb, nil
		}
		helper.Infof("failed connecting to redis, retrying... (%d/3)", i+1)
		time.Sleep(time.Second)
	}
	_ = rdb.Close()
	return nil, fmt.Errorf("failed connecting to redis: %w", err)
}

// NewIDGenerator 初始化 ID 生成器
func NewIDGenerator(app *conf.App) (idgen.IDGenerator, error) {
	g, err := snowflake.NewSnowflake(app.WorkerId)
	if err != nil {
		return nil, err
	}
	model.SetIDGenerator(g)
	return g, nil
}

// DB 返回 GORM 实例
func (d *Data) DB(ctx context.Context) *gorm.DB {
	return d.db.WithContext(ctx)
}

// RDB 返回 Redis 客户端
func (d *Data) RDB() *redis.Client {
	return d.rdb
}
