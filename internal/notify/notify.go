// Package notify renders and delivers operator notifications for load
// outcomes. Delivery goes to SNS when configured, otherwise to the log; an
// optional rules file routes datasets to their own topics.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"driftline/internal/domain"
)

// Notification subjects. Downstream alerting matches on these exactly.
const (
	subjectLoadSucceeded = "Data Load Successful to RDS"
	subjectNullRowsFmt   = "Null Values Found in File %s"
	subjectLoadFailedFmt = "Data Load Failed for File %s"
)

// maxListedRows caps how many row indexes a null-values body spells out.
const maxListedRows = 50

// Severity orders notifications for routing floors.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

func severityRank(s Severity) int {
	switch s {
	case SeverityWarn:
		return 1
	case SeverityError:
		return 2
	default:
		return 0
	}
}

// Message is one rendered notification.
type Message struct {
	Dataset  string
	Subject  string
	Body     string
	Severity Severity
}

// Publisher delivers rendered messages to one transport.
// Implementations: SNSPublisher, LogPublisher.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg Message) error
}

// Sender is what the pipeline uses to emit notifications. Failures are
// returned so the caller can record them as run events; they never fail the
// load itself.
type Sender interface {
	LoadSucceeded(ctx context.Context, result domain.LoadResult) error
	NullRowsFound(ctx context.Context, dataset, key string, rows []int) error
	LoadFailed(ctx context.Context, result domain.LoadResult, loadErr error) error
}

var _ Sender = (*Notifier)(nil)

// Notifier renders notifications and routes them through the configured
// publisher.
type Notifier struct {
	publisher    Publisher
	rules        *Rules
	defaultTopic string
	logger       *slog.Logger
}

// New builds a Notifier. rules may be nil; defaultTopic may be empty when the
// publisher ignores topics (the log publisher does).
func New(publisher Publisher, rules *Rules, defaultTopic string, logger *slog.Logger) *Notifier {
	return &Notifier{
		publisher:    publisher,
		rules:        rules,
		defaultTopic: defaultTopic,
		logger:       logger.With("component", "notify"),
	}
}

// LoadSucceeded announces a completed load.
func (n *Notifier) LoadSucceeded(ctx context.Context, result domain.LoadResult) error {
	return n.send(ctx, Message{
		Dataset:  result.Dataset,
		Subject:  subjectLoadSucceeded,
		Severity: SeverityInfo,
		Body: fmt.Sprintf("Loaded %d rows into %s (%d dropped) from %s/%s in %s.",
			result.RowsLoaded, result.Table, result.RowsDropped,
			result.Bucket, result.ObjectKey, result.Duration),
	})
}

// NullRowsFound reports the 1-based data-row indexes that contained empty
// cells. One message per file, not one per row.
func (n *Notifier) NullRowsFound(ctx context.Context, dataset, key string, rows []int) error {
	return n.send(ctx, Message{
		Dataset:  dataset,
		Subject:  fmt.Sprintf(subjectNullRowsFmt, key),
		Severity: SeverityWarn,
		Body:     fmt.Sprintf("File %s contains empty values in %d row(s): %s.", key, len(rows), listRows(rows)),
	})
}

// LoadFailed reports a failed load attempt.
func (n *Notifier) LoadFailed(ctx context.Context, result domain.LoadResult, loadErr error) error {
	return n.send(ctx, Message{
		Dataset:  result.Dataset,
		Subject:  fmt.Sprintf(subjectLoadFailedFmt, result.ObjectKey),
		Severity: SeverityError,
		Body: fmt.Sprintf("Loading %s/%s into %s failed: %v",
			result.Bucket, result.ObjectKey, result.Table, loadErr),
	})
}

func (n *Notifier) send(ctx context.Context, msg Message) error {
	topic := n.defaultTopic
	if n.rules != nil {
		routed, send := n.rules.Route(msg.Dataset, msg.Severity)
		if !send {
			n.logger.Debug("notification suppressed by routing rules",
				"dataset", msg.Dataset, "severity", msg.Severity)
			return nil
		}
		if routed != "" {
			topic = routed
		}
	}
	if err := n.publisher.Publish(ctx, topic, msg); err != nil {
		return fmt.Errorf("notify %q: %w", msg.Subject, err)
	}
	return nil
}

func listRows(rows []int) string {
	shown := rows
	if len(shown) > maxListedRows {
		shown = shown[:maxListedRows]
	}
	parts := make([]string, len(shown))
	for i, r := range shown {
		parts[i] = fmt.Sprintf("%d", r)
	}
	s := strings.Join(parts, ", ")
	if rest := len(rows) - len(shown); rest > 0 {
		s += fmt.Sprintf(" (and %d more)", rest)
	}
	return s
}

// LogPublisher writes notifications to the log. It is the fallback when SNS
// is not configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher builds a log-backed publisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With("component", "notify")}
}

// Publish logs the message. The topic is ignored.
func (p *LogPublisher) Publish(_ context.Context, _ string, msg Message) error {
	p.logger.Info("notification",
		"dataset", msg.Dataset,
		"severity", msg.Severity,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}
