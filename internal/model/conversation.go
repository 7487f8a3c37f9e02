package model

import (
	"fmt"
	"time"
)

// Conversation 会话主表：买家与卖家围绕某店铺（可选订单/商品）的唯一会话
type Conversation struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	BuyerID       string    `gorm:"type:varchar(36);not null;index" json:"buyerId"`
	SellerID      string    `gorm:"type:varchar(36);not null;index" json:"sellerId"`
	StoreID       uint64    `gorm:"not null" json:"storeId"`
	OrderID       *uint64   `json:"orderId"`
	ProductID     *uint64   `json:"productId"`
	ThreadKey     string    `gorm:"uniqueIndex;type:varchar(191);not null" json:"-"` // buyer_seller_store_order_product
	LastMessageID *uint64   `json:"lastMessageId"`
	LastMessageAt time.Time `gorm:"index" json:"lastMessageAt"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Conversation) TableName() string { return "conversations" }

// BuildThreadKey 生成会话唯一键，缺省的订单/商品统一编码为 0，
// 避免 NULL 在唯一索引下互不相等导致重复会话
func BuildThreadKey(buyerID, sellerID string, storeID uint64, orderID, productID *uint64) string {
	var oid, pid uint64
	if orderID != nil {
		oid = *orderID
	}
	if productID != nil {
		pid = *productID
	}
	return fmt.Sprintf("%s_%s_%d_%d_%d", buyerID, sellerID, storeID, oid, pid)
}

// IsParticipant 检查用户是否为会话参与方
func (c *Conversation) IsParticipant(userID string) bool {
	return userID == c.BuyerID || userID == c.SellerID
}

// PeerOf 返回会话中相对于给定用户的另一方
func (c *Conversation) PeerOf(userID string) string {
	if userID == c.BuyerID {
		return c.SellerID
	}
	return c.BuyerID
}
