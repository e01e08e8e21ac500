package events

import (
	"context"

	nats "github.com/nats-io/nats.go"
)

// NATSSink publishes events as JSON on "<prefix>.<job>".
type NATSSink struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSSink returns a sink publishing on conn. An empty prefix defaults to
// "jobgate.runs".
func NewNATSSink(conn *nats.Conn, prefix string) *NATSSink {
	if prefix == "" {
		prefix = "jobgate.runs"
	}
	return &NATSSink{conn: conn, prefix: prefix}
}

// Subject returns the subject used for job.
func (n *NATSSink) Subject(job string) string {
	return n.prefix + "." + job
}

// Emit implements Sink.Emit.
func (n *NATSSink) Emit(ctx context.Context, e RunEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := e.Encode()
	if err != nil {
		return err
	}
	return n.conn.Publish(n.Subject(e.Job), data)
}
