package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"web3-talent-scout/internal/common"
	"web3-talent-scout/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresStore 实现了 port.Store 接口
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore 初始化数据库连接并自动迁移表结构
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// AutoMigrate 自动建 analysis_records 表，字段变了也会自动更新
	if err := db.AutoMigrate(&domain.AnalysisRecord{}); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// newWithDB 直接注入 gorm 实例，测试用
func newWithDB(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Save 保存一条分析记录
func (s *PostgresStore) Save(ctx context.Context, record *domain.AnalysisRecord) error {
	record.Username = strings.ToLower(record.Username)
	result := s.db.WithContext(ctx).Create(record)
	if result.Error != nil {
		return common.WrapError(common.ErrCodePersistence, "保存分析记录失败", result.Error)
	}
	return nil
}

// LatestByUsername 某个用户最近一次的分析
func (s *PostgresStore) LatestByUsername(ctx context.Context, username string) (*domain.AnalysisRecord, error) {
	var record domain.AnalysisRecord
	err := s.db.WithContext(ctx).
		Where("username = ?", strings.ToLower(username)).
		Order("created_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NewError(common.ErrCodeNotFound, "该用户还没有分析记录")
	}
	if err != nil {
		return nil, common.WrapError(common.ErrCodePersistence, "查询分析记录失败", err)
	}
	return &record, nil
}

// ByID 按 id 查单条
func (s *PostgresStore) ByID(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	var record domain.AnalysisRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NewError(common.ErrCodeNotFound, "分析记录不存在")
	}
	if err != nil {
		return nil, common.WrapError(common.ErrCodePersistence, "查询分析记录失败", err)
	}
	return &record, nil
}

// History 最近的 N 条分析记录
func (s *PostgresStore) History(ctx context.Context, limit int) ([]*domain.AnalysisRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var records []*domain.AnalysisRecord
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, common.WrapError(common.ErrCodePersistence, "查询历史记录失败", err)
	}
	return records, nil
}
