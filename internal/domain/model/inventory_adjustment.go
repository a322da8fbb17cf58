package model

import "time"

// 在庫調整の履歴
// 在庫が動いた操作ごとに1行。注文起因のときはOrderIDが入る。
type InventoryAdjustment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64     `gorm:"not null;index" json:"product_id"`
	OrderID   *int64    `gorm:"index" json:"order_id,omitempty"`
	Delta     int64     `gorm:"not null" json:"delta"`
	Reason    string    `gorm:"type:varchar(255);not null" json:"reason"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

const (
	AdjustReasonInitial  = "initial stock"
	AdjustReasonSet      = "set quantity"
	AdjustReasonReduce   = "reduce"
	AdjustReasonRestock  = "restock"
	AdjustReasonOrder    = "order placed"
	AdjustReasonCancel   = "order cancelled"
	AdjustReasonDeletion = "order deleted"
)
