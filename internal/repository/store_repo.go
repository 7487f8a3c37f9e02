package repository

import (
	"Tradeline/internal/model"
	"context"

	"gorm.io/gorm"
)

// StoreRepo 店铺/订单/商品的目录查询，会话解析前的上下文校验都走这里
type StoreRepo interface {
	GetStore(ctx context.Context, storeID uint64) (*model.Store, error)
	OrderExists(ctx context.Context, orderID uint64) (bool, error)
	ProductExists(ctx context.Context, productID uint64) (bool, error)
}

type storeRepoImpl struct {
	db *gorm.DB
}

func NewStoreRepo(db *gorm.DB) StoreRepo {
	return &storeRepoImpl{db: db}
}

// GetStore 根据店铺 ID 获取店铺
func (s *storeRepoImpl) GetStore(ctx context.Context, storeID uint64) (*model.Store, error) {
	var store model.Store
	err := s.db.WithContext(ctx).First(&store, storeID).Error
	if err != nil {
		return nil, err
	}
	return &store, nil
}

func (s *storeRepoImpl) OrderExists(ctx context.Context, orderID uint64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Count(&count).Error
	return count > 0, err
}

func (s *storeRepoImpl) ProductExists(ctx context.Context, productID uint64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", productID).
		Count(&count).Error
	return count > 0, err
}
