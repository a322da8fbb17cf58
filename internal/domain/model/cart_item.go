package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// カートの明細
// (user_id, product_id)で1行。同じ商品は数量を合算する。
type CartItem struct {
	UserID    int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	ProductID int64     `gorm:"primaryKey;autoIncrement:false;index" json:"product_id"`
	Quantity  int64     `gorm:"not null;check:quantity > 0" json:"quantity"`
	AddedAt   time.Time `gorm:"not null;autoCreateTime" json:"added_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 表示用に商品情報を結合した明細。Priceは現在の商品価格。
type CartLine struct {
	ProductID         int64           `json:"product_id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	Quantity          int64           `json:"quantity"`
	QuantityAvailable int64           `json:"quantity_available"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(l.Quantity))
}
