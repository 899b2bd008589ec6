// Package events publishes assessment lifecycle events on NATS.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Completed is published after a submission has been recorded.
type Completed struct {
	Client     string    `json:"client"`
	RecordID   string    `json:"record_id,omitempty"`
	RiskLevel  string    `json:"risk_level"`
	Prediction int       `json:"prediction"`
	Source     string    `json:"source"`
	Confidence *float64  `json:"confidence,omitempty"`
	At         time.Time `json:"at"`
}

var subjectEscaper = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")

// CompletedSubject is {prefix}.assessment.completed.{client}.
func CompletedSubject(prefix, client string) string {
	return prefix + ".assessment.completed." + subjectEscaper.Replace(client)
}

// CompletedWildcard matches completions of every client.
func CompletedWildcard(prefix string) string {
	return prefix + ".assessment.completed.*"
}

// Publisher is nil-safe: a nil *Publisher or one without a connection
// drops events, so NATS stays optional.
type Publisher struct {
	nc     *nats.Conn
	prefix string
}

func NewPublisher(nc *nats.Conn, prefix string) *Publisher {
	return &Publisher{nc: nc, prefix: prefix}
}

func (p *Publisher) AssessmentCompleted(ctx context.Context, ev Completed) {
	if p == nil || p.nc == nil {
		return
	}
	body, err := json.Marshal(ev)
	if err != nil {
		slog.WarnContext(ctx, "events: encode completion", "error", err)
		return
	}
	if err := p.nc.Publish(CompletedSubject(p.prefix, ev.Client), body); err != nil {
		slog.WarnContext(ctx, "events: publish completion", "client", ev.Client, "error", err)
	}
}

// DecodeCompleted parses a message published by AssessmentCompleted.
func DecodeCompleted(data []byte) (Completed, error) {
	var ev Completed
	err := json.Unmarshal(data, &ev)
	return ev, err
}
