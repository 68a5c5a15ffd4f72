package calls

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/richxcame/cdr-radar/pkg/logger"
	"go.uber.org/zap"
)

// AlertPublisher announces callers that reached the CRITICAL tier
type AlertPublisher interface {
	PublishCritical(ctx context.Context, report *Report, alerts []RankedCaller) error
}

// CriticalAlert is the message body published for each critical caller
type CriticalAlert struct {
	ReportID    string       `json:"report_id"`
	BatchDigest string       `json:"batch_digest"`
	Caller      RankedCaller `json:"caller"`
}

// NATSAlertPublisher publishes one message per critical caller
type NATSAlertPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSAlertPublisher creates a publisher on subject
func NewNATSAlertPublisher(conn *nats.Conn, subject string) *NATSAlertPublisher {
	return &NATSAlertPublisher{conn: conn, subject: subject}
}

// PublishCritical publishes every alert and reports all failures together
func (p *NATSAlertPublisher) PublishCritical(ctx context.Context, report *Report, alerts []RankedCaller) error {
	if len(alerts) == 0 {
		return nil
	}
	if p.conn == nil || !p.conn.IsConnected() {
		return fmt.Errorf("NATS connection not available")
	}

	var errs []error
	for _, alert := range alerts {
		msg, err := p.message(ctx, report, alert)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := p.conn.PublishMsg(msg); err != nil {
			errs = append(errs, fmt.Errorf("caller %s: %w", alert.Caller, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to publish %d of %d critical alerts: %w", len(errs), len(alerts), errors.Join(errs...))
	}

	logger.WithContext(ctx).Info("Published critical caller alerts",
		zap.String("subject", p.subject),
		zap.String("report_id", report.ID),
		zap.Int("count", len(alerts)),
	)
	return nil
}

func (p *NATSAlertPublisher) message(ctx context.Context, report *Report, alert RankedCaller) (*nats.Msg, error) {
	data, err := json.Marshal(CriticalAlert{
		ReportID:    report.ID,
		BatchDigest: report.Digest,
		Caller:      alert,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal alert for %s: %w", alert.Caller, err)
	}

	headers := nats.Header{}
	headers.Set("x-report-id", report.ID)
	headers.Set("x-caller", alert.Caller)
	headers.Set("x-risk-level", string(alert.RiskLevel))
	headers.Set("x-frequency", strconv.Itoa(alert.Frequency))
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		headers.Set("x-correlation-id", id)
	}

	return &nats.Msg{
		Subject: p.subject,
		Data:    data,
		Header:  headers,
	}, nil
}
