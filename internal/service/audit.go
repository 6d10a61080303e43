package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stcadmin/fba-backend/internal/model"
	"github.com/stcadmin/fba-backend/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// auditWrite records an audit entry. Audit failures are logged, never
// propagated; the triggering operation has already succeeded.
func auditWrite(ctx context.Context, repo repository.AuditRepository, logger *zap.Logger, userID, action string, entityID uint, entityName string, details interface{}) {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}
	payload, _ := json.Marshal(details)
	entry := &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   fmt.Sprintf("%d", entityID),
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := repo.Log(ctx, entry); err != nil {
		logger.Error("failed to write audit log",
			zap.String("action", action),
			zap.String("user_id", userID),
			zap.Error(err))
	}
}
