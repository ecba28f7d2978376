package stream

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/natterhq/natter/social"
	"github.com/natterhq/natter/store"
)

// GenerateNotification reacts to a like or comment creation and notifies
// the post author. The notification id equals the source document id, so
// redelivering the record overwrites the same notification with the same
// content instead of producing a duplicate.
//
// The event is dropped without error when the post no longer exists (no
// notification for a deleted target) or when the sender is the post's own
// author (no self-notification).
func (r *Reactors) GenerateNotification(notificationType string) Reactor {
	return func(ctx context.Context, rec Record) error {
		sourceID := stringAttr(rec.New, social.AttrID)
		postID := stringAttr(rec.New, social.AttrPostID)
		sender := stringAttr(rec.New, social.AttrAuthorHandle)
		createdAt := stringAttr(rec.New, social.AttrCreatedAt)

		doc, err := r.store.Get(ctx, r.cfg.Posts, store.StringKey(social.AttrID, postID))
		if errors.Is(err, store.ErrNotFound) {
			r.log.Debug("dropping notification for deleted post",
				"postID", postID,
				"source", sourceID,
			)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read post %s: %w", postID, err)
		}

		var post social.Post
		if err := attributevalue.UnmarshalMap(doc, &post); err != nil {
			return fmt.Errorf("unmarshal post: %w", err)
		}
		if sender == post.AuthorHandle {
			return nil
		}

		notification := social.Notification{
			ID:              sourceID,
			RecipientHandle: post.AuthorHandle,
			SenderHandle:    sender,
			PostID:          postID,
			Type:            notificationType,
			CreatedAt:       createdAt,
			Read:            false,
		}
		item, err := attributevalue.MarshalMap(notification)
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}
		if err := r.store.Put(ctx, r.cfg.Notifications, item); err != nil {
			return fmt.Errorf("write notification %s: %w", sourceID, err)
		}

		r.log.Info("notification written",
			"id", sourceID,
			"type", notificationType,
			"recipient", post.AuthorHandle,
			"sender", sender,
		)
		return nil
	}
}

// InvalidateNotification reacts to a like deletion by removing the
// notification keyed by the like's id. The like and its notification share
// the same key attribute, so the stream key converts directly. Deleting a
// notification that was never created (self-like) or is already gone is a
// no-op.
func (r *Reactors) InvalidateNotification(ctx context.Context, rec Record) error {
	if err := r.store.Delete(ctx, r.cfg.Notifications, ConvertKey(rec.Keys)); err != nil {
		return fmt.Errorf("delete notification %s: %w", stringAttr(rec.Keys, social.AttrID), err)
	}
	return nil
}
