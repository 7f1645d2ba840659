package sender

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// NoopSender stands in when email or SMS transport is not configured.
// Messages are logged and dropped.
type NoopSender struct{}

func (NoopSender) SendEmail(_ context.Context, to, subject, _ string) (SendResult, error) {
	zap.L().Warn("Email transport not configured, dropping message",
		zap.String("to", to), zap.String("subject", subject))
	return SendResult{
		MessageID: fmt.Sprintf("noop-%d", time.Now().UnixNano()),
		SentAt:    time.Now(),
	}, nil
}

func (NoopSender) SendSMS(_ context.Context, to, _ string) (SendResult, error) {
	zap.L().Warn("SMS transport not configured, dropping message",
		zap.String("to", to))
	return SendResult{
		MessageID: fmt.Sprintf("noop-%d", time.Now().UnixNano()),
		SentAt:    time.Now(),
	}, nil
}
