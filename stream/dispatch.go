// Package stream implements the event-driven reactors that keep derived
// and denormalized state consistent after base mutations, fed by DynamoDB
// Streams.
package stream

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Kind is the mutation kind of a stream record.
type Kind string

const (
	KindInsert Kind = "INSERT"
	KindModify Kind = "MODIFY"
	KindRemove Kind = "REMOVE"
)

// Record is one document mutation delivered off the stream.
type Record struct {
	EventID string
	Table   string
	Kind    Kind
	Keys    map[string]events.DynamoDBAttributeValue
	Old     map[string]events.DynamoDBAttributeValue
	New     map[string]events.DynamoDBAttributeValue
}

// Reactor handles one record. Reactors run under at-least-once delivery:
// the same record may arrive more than once, and a referenced document may
// be stale or already gone by the time the reactor reads it.
type Reactor func(ctx context.Context, rec Record) error

type routeKey struct {
	table string
	kind  Kind
}

// Dispatcher routes stream records to reactors by (table, mutation kind).
// Delivery is at-least-once and unordered across distinct documents;
// records for a single document arrive in causal order (the stream shards
// by key).
type Dispatcher struct {
	routes map[routeKey]Reactor
	log    *slog.Logger
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		routes: make(map[routeKey]Reactor),
		log:    logger,
	}
}

// Register maps a (table, kind) pair to a reactor. Records with no
// registered reactor are skipped.
func (d *Dispatcher) Register(table string, kind Kind, fn Reactor) {
	d.routes[routeKey{table: table, kind: kind}] = fn
}

// HandleStream processes a stream event batch. This is the Lambda handler.
// A reactor error fails the batch so the platform redelivers it; reactors
// must therefore be idempotent.
func (d *Dispatcher) HandleStream(ctx context.Context, event events.DynamoDBEvent) error {
	for _, raw := range event.Records {
		rec := Record{
			EventID: raw.EventID,
			Table:   tableFromARN(raw.EventSourceArn),
			Kind:    Kind(raw.EventName),
			Keys:    raw.Change.Keys,
			Old:     raw.Change.OldImage,
			New:     raw.Change.NewImage,
		}

		fn, ok := d.routes[routeKey{table: rec.Table, kind: rec.Kind}]
		if !ok {
			continue
		}

		if err := fn(ctx, rec); err != nil {
			d.log.Error("reactor failed",
				"eventID", rec.EventID,
				"table", rec.Table,
				"kind", rec.Kind,
				"error", err,
			)
			return err // fail the batch; the stream redelivers
		}
	}
	return nil
}

// tableFromARN extracts the table name from a stream event source ARN
// (arn:aws:dynamodb:region:account:table/NAME/stream/TIMESTAMP).
func tableFromARN(arn string) string {
	parts := strings.Split(arn, "/")
	for i, part := range parts {
		if strings.HasSuffix(part, ":table") && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	if len(parts) >= 2 {
		return parts[1]
	}
	return arn
}
