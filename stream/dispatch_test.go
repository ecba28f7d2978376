package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

func TestTableFromARN(t *testing.T) {
	tests := []struct {
		name string
		arn  string
		want string
	}{
		{
			name: "stream arn",
			arn:  "arn:aws:dynamodb:us-east-1:123456789012:table/posts/stream/2024-01-01T00:00:00.000",
			want: "posts",
		},
		{
			name: "prefixed table",
			arn:  "arn:aws:dynamodb:eu-west-1:123456789012:table/natter-prod-likes/stream/2024-01-01T00:00:00.000",
			want: "natter-prod-likes",
		},
		{
			name: "table arn without stream suffix",
			arn:  "arn:aws:dynamodb:us-east-1:123456789012:table/users",
			want: "users",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tableFromARN(tt.arn); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDispatcher_RoutesByTableAndKind(t *testing.T) {
	d := NewDispatcher(nil)

	var likeInserts, likeRemoves int
	d.Register("likes", KindInsert, func(ctx context.Context, rec Record) error {
		likeInserts++
		return nil
	})
	d.Register("likes", KindRemove, func(ctx context.Context, rec Record) error {
		likeRemoves++
		return nil
	})

	event := events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		{EventID: "1", EventName: "INSERT", EventSourceArn: "arn:aws:dynamodb:us-east-1:1:table/likes/stream/x"},
		{EventID: "2", EventName: "REMOVE", EventSourceArn: "arn:aws:dynamodb:us-east-1:1:table/likes/stream/x"},
		{EventID: "3", EventName: "INSERT", EventSourceArn: "arn:aws:dynamodb:us-east-1:1:table/comments/stream/x"},
		{EventID: "4", EventName: "MODIFY", EventSourceArn: "arn:aws:dynamodb:us-east-1:1:table/likes/stream/x"},
	}}

	if err := d.HandleStream(context.Background(), event); err != nil {
		t.Fatalf("HandleStream: %v", err)
	}
	if likeInserts != 1 || likeRemoves != 1 {
		t.Errorf("expected 1 insert and 1 remove handled, got %d/%d", likeInserts, likeRemoves)
	}
}

func TestDispatcher_ReactorErrorFailsBatch(t *testing.T) {
	d := NewDispatcher(nil)

	boom := errors.New("boom")
	var calls int
	d.Register("posts", KindRemove, func(ctx context.Context, rec Record) error {
		calls++
		if calls == 1 {
			return boom
		}
		return nil
	})

	event := events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		{EventID: "1", EventName: "REMOVE", EventSourceArn: "arn:aws:dynamodb:us-east-1:1:table/posts/stream/x"},
		{EventID: "2", EventName: "REMOVE", EventSourceArn: "arn:aws:dynamodb:us-east-1:1:table/posts/stream/x"},
	}}

	if err := d.HandleStream(context.Background(), event); !errors.Is(err, boom) {
		t.Fatalf("expected reactor error surfaced, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected processing to stop at the failed record, got %d calls", calls)
	}

	// Redelivery of the same batch succeeds.
	if err := d.HandleStream(context.Background(), event); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
}

func TestDispatcher_UnroutedRecordsSkipped(t *testing.T) {
	d := NewDispatcher(nil)

	event := events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		{EventID: "1", EventName: "INSERT", EventSourceArn: "arn:aws:dynamodb:us-east-1:1:table/unknown/stream/x"},
	}}
	if err := d.HandleStream(context.Background(), event); err != nil {
		t.Errorf("expected unrouted record to be skipped, got %v", err)
	}
}
