package model

import "time"

// Store 店铺表：会话的归属上下文，OwnerID 用于服务端买卖双方角色推导
type Store struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	OwnerID   string    `gorm:"type:varchar(36);not null;index" json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Store) TableName() string { return "stores" }

// Order 订单表（仅用于会话上下文的存在性校验）
type Order struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	StoreID   uint64    `gorm:"not null;index" json:"storeId"`
	BuyerID   string    `gorm:"type:varchar(36);not null;index" json:"buyerId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Order) TableName() string { return "orders" }

// Product 商品表（仅用于会话上下文的存在性校验）
type Product struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	StoreID   uint64    `gorm:"not null;index" json:"storeId"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Product) TableName() string { return "products" }
