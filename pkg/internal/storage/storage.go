// Package storage 聚合数据库、KV、消息队列与对象存储客户端.
//
// Example:
//
//	mgr, err := storage.Init(ctx, configs.GetConfig())
//	if err != nil {
//		// 处理错误
//	}
//	defer mgr.Close()
//
//	dbClient := mgr.GetDBClient()
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/postvault/pkg/configs"
	dbc "github.com/yeisme/postvault/pkg/internal/storage/db"
	kvc "github.com/yeisme/postvault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/postvault/pkg/internal/storage/mq"
	s3c "github.com/yeisme/postvault/pkg/internal/storage/s3"
	nlog "github.com/yeisme/postvault/pkg/log"
)

// Manager 聚合所有存储资源，DB 必选，其余按配置启用（未启用时为 nil）.
type Manager struct {
	DB *dbc.Client
	KV *kvc.Client
	MQ *mqc.Client
	S3 *s3c.Client
}

// Init 按配置初始化存储，任何已启用组件初始化失败都会返回错误并关闭已打开的资源.
func Init(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	m := &Manager{}

	dbi, err := dbc.New(ctx, &cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	m.DB = dbi

	if cfg.KV.Enabled() {
		kvi, err := kvc.NewKVClient(ctx, &cfg.KV)
		if err != nil {
			_ = m.Close()

			return nil, fmt.Errorf("init kv: %w", err)
		}

		m.KV = kvi
	}

	if cfg.MQ.Enabled {
		mqi, err := mqc.New(ctx, &cfg.MQ)
		if err != nil {
			_ = m.Close()

			return nil, fmt.Errorf("init mq: %w", err)
		}

		m.MQ = mqi
	}

	if cfg.S3.Enabled {
		s3i, err := s3c.New(ctx, &cfg.S3)
		if err != nil {
			_ = m.Close()

			return nil, fmt.Errorf("init s3: %w", err)
		}

		m.S3 = s3i
	}

	nlog.Logger().Info().
		Bool("kv", m.KV != nil).
		Bool("mq", m.MQ != nil).
		Bool("s3", m.S3 != nil).
		Msg("storage manager initialized")

	return m, nil
}

// Close 关闭所有已打开的存储资源.
func (m *Manager) Close() error {
	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	return errors.Join(errs...)
}

// Probe 单个组件的健康检查.
type Probe struct {
	Name    string
	Enabled bool
	Check   func(ctx context.Context) error
}

// Probes 按 db、kv、mq、s3 顺序返回健康检查，未启用的组件 Enabled 为 false.
func (m *Manager) Probes() []Probe {
	return []Probe{
		{Name: "db", Enabled: m.DB != nil, Check: func(ctx context.Context) error {
			sqlDB, err := m.DB.DB.DB()
			if err != nil {
				return err
			}

			return sqlDB.PingContext(ctx)
		}},
		{Name: "kv", Enabled: m.KV != nil, Check: func(ctx context.Context) error {
			_, err := m.KV.Exists(ctx, "health.probe")
			return err
		}},
		// watermill 客户端没有探活接口，初始化成功即视为可用
		{Name: "mq", Enabled: m.MQ != nil, Check: func(context.Context) error { return nil }},
		{Name: "s3", Enabled: m.S3 != nil, Check: func(ctx context.Context) error { return m.S3.HealthCheck(ctx) }},
	}
}

// GetS3Client 获取 S3 客户端.
func (m *Manager) GetS3Client() *s3c.Client {
	return m.S3
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}
