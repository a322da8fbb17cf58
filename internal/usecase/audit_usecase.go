package usecase

import (
	"context"
	"encoding/json"

	"smartcommerce/internal/domain/model"
	"smartcommerce/internal/logger"
	repo "smartcommerce/internal/repository"
)

// 管理者操作の記録。操作そのものは成功しているので、記録の失敗はログに出すだけ
type AuditUsecase struct {
	logs repo.AuditLogRepository
}

func NewAuditUsecase(logs repo.AuditLogRepository) *AuditUsecase {
	return &AuditUsecase{logs: logs}
}

type AuditEntry struct {
	ActorUserID  int64
	Action       model.AuditAction
	ResourceType model.AuditResourceType
	ResourceID   int64
	Before       any
	After        any
}

func (u *AuditUsecase) Record(ctx context.Context, e AuditEntry) {
	log := model.AuditLog{
		ActorUserID:  e.ActorUserID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		BeforeJSON:   toJSON(e.Before),
		AfterJSON:    toJSON(e.After),
	}
	if err := u.logs.Create(ctx, log); err != nil {
		logger.WithCtx(ctx).Warn("audit log not recorded",
			"action", e.Action, "resource_id", e.ResourceID, "error", err)
	}
}

func (u *AuditUsecase) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if f.Limit < 0 || f.Limit > 200 {
		return nil, NewBusinessRule("invalid limit")
	}
	if f.Offset < 0 {
		return nil, NewBusinessRule("invalid offset")
	}
	logs, err := u.logs.List(ctx, f)
	if err != nil {
		return nil, NewPersistence(err)
	}
	return logs, nil
}

// nilは空文字
func toJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
