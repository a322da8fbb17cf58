package model

import "time"

// 商品ごとの在庫（1商品1行）。数量の正はこのテーブル。
type Inventory struct {
	ProductID         int64     `gorm:"primaryKey;autoIncrement:false" json:"product_id"`
	QuantityAvailable int64     `gorm:"not null;check:quantity_available >= 0" json:"quantity_available"`
	UpdatedAt         time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
