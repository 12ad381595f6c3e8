package notify

import (
	"context"

	"github.com/ballparklabs/diamondline/internal/domain/validation"
	"github.com/ballparklabs/diamondline/internal/platform/logging"
)

// LogNotifier writes alerts to the structured log. Used when no webhook is
// configured.
type LogNotifier struct {
	logger *logging.Logger
}

func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, report validation.Report, alerts []validation.Alert) error {
	for _, alert := range alerts {
		switch alert.Level {
		case validation.AlertError:
			n.logger.ErrorContext(ctx, alert.Message, "alert_type", alert.Type, "details", alert.Details)
		default:
			n.logger.WarnContext(ctx, alert.Message, "alert_type", alert.Type, "details", alert.Details)
		}
	}
	n.logger.InfoContext(ctx, "validation report",
		"date", report.ValidationDate.Format("2006-01-02"),
		"overall_status", report.OverallStatus,
		"failed_validations", report.FailedValidations,
	)
	return nil
}
