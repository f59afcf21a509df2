package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/storefront/pkg/logger"
)

// auditWriteTimeout bounds a single audit insert so a slow store cannot hold
// up the verification response.
const auditWriteTimeout = 2 * time.Second

// RecordAudit writes entry and only logs failures; the audit trail never
// changes the outcome of a verification request. The write is detached from
// ctx cancellation so a client hanging up still leaves a record. A nil
// service is a no-op.
func RecordAudit(ctx context.Context, audit *AuditService, entry AuditEntry) {
	if audit == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	if err := audit.Log(ctx, entry); err != nil {
		logger.WithModule("audit").Warn("failed to record audit entry",
			zap.String("action", entry.Action),
			zap.String("result", entry.Result),
			zap.String("request_id", entry.RequestID),
			zap.Error(err),
		)
	}
}
