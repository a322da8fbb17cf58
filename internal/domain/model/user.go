package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ユーザー。この層では存在確認とtoken_versionの照合だけに使う。
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Name         string    `gorm:"type:varchar(255)" json:"name"`
	Role         Role      `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	TokenVersion int       `gorm:"not null;default:0" json:"-"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
