package model

import "time"

const (
	ReviewRatingMin = 1
	ReviewRatingMax = 5
)

// 商品レビュー（1〜5の評価とコメント）
type Review struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64     `gorm:"not null;index" json:"product_id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Rating    int       `gorm:"not null;check:rating BETWEEN 1 AND 5" json:"rating"`
	Comment   string    `gorm:"type:text;not null" json:"comment"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 商品ごとの評価集計
type RatingSummary struct {
	ProductID int64   `json:"product_id"`
	Count     int64   `json:"count"`
	Average   float64 `json:"average"`
}
