package dynamotest

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/natterhq/natter/store"
)

// CreateSocialTables registers the five collections with their key
// attributes.
func (c *Client) CreateSocialTables(cfg store.Config) {
	c.CreateTable(cfg.Posts, "id")
	c.CreateTable(cfg.Comments, "id")
	c.CreateTable(cfg.Likes, "id")
	c.CreateTable(cfg.Notifications, "id")
	c.CreateTable(cfg.Users, "handle")
}

// streamARN mimics the event source ARN shape the dispatcher parses.
func streamARN(table string) string {
	return fmt.Sprintf("arn:aws:dynamodb:us-east-1:000000000000:table/%s/stream/2020-01-01T00:00:00.000", table)
}

// DrainEvents returns every journaled mutation as a stream event batch and
// clears the journal. Records for a single document appear in mutation
// order; tests can hand the same batch to a handler twice to exercise
// at-least-once redelivery.
func (c *Client) DrainEvents() events.DynamoDBEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	var event events.DynamoDBEvent
	for _, entry := range c.journal {
		event.Records = append(event.Records, events.DynamoDBEventRecord{
			EventID:        entry.id,
			EventName:      entry.kind,
			EventSourceArn: streamARN(entry.table),
			Change: events.DynamoDBStreamRecord{
				Keys:     toEventImage(entry.key),
				OldImage: toEventImage(entry.old),
				NewImage: toEventImage(entry.new),
			},
		})
	}
	c.journal = nil
	return event
}

// Settle repeatedly drains the journal into handler until no mutations
// remain, i.e. until all reactors (and the reactions their writes
// trigger) have quiesced.
func (c *Client) Settle(ctx context.Context, handler func(context.Context, events.DynamoDBEvent) error) error {
	for {
		event := c.DrainEvents()
		if len(event.Records) == 0 {
			return nil
		}
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
}

// toEventImage converts a stored item to a stream image.
func toEventImage(item map[string]types.AttributeValue) map[string]events.DynamoDBAttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]events.DynamoDBAttributeValue, len(item))
	for k, v := range item {
		switch av := v.(type) {
		case *types.AttributeValueMemberS:
			out[k] = events.NewStringAttribute(av.Value)
		case *types.AttributeValueMemberN:
			out[k] = events.NewNumberAttribute(av.Value)
		case *types.AttributeValueMemberBOOL:
			out[k] = events.NewBooleanAttribute(av.Value)
		case *types.AttributeValueMemberNULL:
			out[k] = events.NewNullAttribute()
		}
	}
	return out
}
