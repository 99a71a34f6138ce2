// Package notify sends operator alerts over SNS and SES.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"loan-pipeline/internal/common/aws"
	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/models"
	generatereport "loan-pipeline/internal/workers/quality/generate-report"
)

const (
	ChannelSNS = "sns"
	ChannelSES = "ses"

	subjectPrefix = "[loan-pipeline]"
)

// Notifier fans an alert out to every configured channel. A nil channel is
// skipped; a failing channel does not stop the others.
type Notifier struct {
	sns        *aws.SNSClient
	ses        *aws.SESClient
	recipients []string
	logger     logger.Logger
}

func NewNotifier(sns *aws.SNSClient, ses *aws.SESClient, recipients []string, log logger.Logger) *Notifier {
	return &Notifier{
		sns:        sns,
		ses:        ses,
		recipients: recipients,
		logger:     log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

// Enabled reports whether at least one channel is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && (n.sns != nil || (n.ses != nil && len(n.recipients) > 0))
}

// NotifyQuality alerts on a quality report.
func (n *Notifier) NotifyQuality(ctx context.Context, report *models.QualityReport) error {
	subject := fmt.Sprintf("%s data quality: %s", subjectPrefix, report.Severity)
	return n.send(ctx, subject, generatereport.Format(report))
}

// NotifyFailure alerts on a job run that ended with a fatal error.
func (n *Notifier) NotifyFailure(ctx context.Context, job, runID string, runErr error) error {
	subject := fmt.Sprintf("%s %s run failed", subjectPrefix, job)

	var b strings.Builder
	fmt.Fprintf(&b, "Job: %s\n", job)
	fmt.Fprintf(&b, "Run: %s\n", runID)
	if std, ok := apperrors.AsStandard(runErr); ok {
		fmt.Fprintf(&b, "Code: %s\n", std.Code)
		fmt.Fprintf(&b, "Retryable: %t\n", std.Retryable)
	}
	fmt.Fprintf(&b, "Error: %v\n", runErr)

	return n.send(ctx, subject, b.String())
}

func (n *Notifier) send(ctx context.Context, subject, body string) error {
	if !n.Enabled() {
		return nil
	}

	var errs []error

	if n.sns != nil {
		id, err := n.sns.PublishMessage(ctx, subject, body)
		if err != nil {
			errs = append(errs, apperrors.NewNotificationSendFailedError(ChannelSNS, err))
		} else {
			n.logger.Info("Alert published", map[string]interface{}{"channel": ChannelSNS, "messageId": id})
		}
	}

	if n.ses != nil && len(n.recipients) > 0 {
		id, err := n.ses.SendText(ctx, n.recipients, subject, body)
		if err != nil {
			errs = append(errs, apperrors.NewNotificationSendFailedError(ChannelSES, err))
		} else {
			n.logger.Info("Alert emailed", map[string]interface{}{"channel": ChannelSES, "messageId": id})
		}
	}

	return errors.Join(errs...)
}
