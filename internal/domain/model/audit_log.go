package model

import "time"

// 管理者操作の種類
type AuditAction string

const (
	AuditActionSetStock          AuditAction = "SET_STOCK"
	AuditActionAdjustStock       AuditAction = "ADJUST_STOCK"
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	AuditActionDeleteOrder       AuditAction = "DELETE_ORDER"
	AuditActionCreateProduct     AuditAction = "CREATE_PRODUCT"
	AuditActionUpdateProduct     AuditAction = "UPDATE_PRODUCT"
	AuditActionDeleteProduct     AuditAction = "DELETE_PRODUCT"
	AuditActionUpdateCategory    AuditAction = "UPDATE_CATEGORY"
	AuditActionDeleteCategory    AuditAction = "DELETE_CATEGORY"
	AuditActionDeleteReview      AuditAction = "DELETE_REVIEW"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceProduct   AuditResourceType = "product"
	AuditResourceInventory AuditResourceType = "inventory"
	AuditResourceOrder     AuditResourceType = "order"
	AuditResourceCategory  AuditResourceType = "category"
	AuditResourceReview    AuditResourceType = "review"
)

// 監査ログ。「誰が」「何を」「どの対象に」「どう変えたか」を残す。
// Before/AfterはJSON文字列。
type AuditLog struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorUserID  int64             `gorm:"not null;index" json:"actor_user_id"`
	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index:idx_audit_resource" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index:idx_audit_resource" json:"resource_id"`
	BeforeJSON   string            `gorm:"type:text" json:"before_json,omitempty"`
	AfterJSON    string            `gorm:"type:text" json:"after_json,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;autoCreateTime;index" json:"created_at"`
}
