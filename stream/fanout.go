package stream

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/natterhq/natter/social"
	"github.com/natterhq/natter/store"
)

// PropagateAvatar reacts to a user update by rewriting the cached avatar
// on every post the user authored, in one atomic batch. It compares the
// before/after images on exactly the avatar field, so unrelated profile
// edits never fan out. All of the user's posts go into the batch at once;
// very prolific authors are an accepted scaling limit.
func (r *Reactors) PropagateAvatar(ctx context.Context, rec Record) error {
	oldAvatar := stringAttr(rec.Old, social.AttrAvatarURL)
	newAvatar := stringAttr(rec.New, social.AttrAvatarURL)
	if oldAvatar == newAvatar {
		return nil
	}

	handle := stringAttr(rec.Keys, social.AttrHandle)
	docs, err := r.store.QueryIndex(ctx, r.cfg.Posts, store.AuthorIndex, social.AttrAuthorHandle, handle)
	if err != nil {
		return fmt.Errorf("scan posts by %s: %w", handle, err)
	}
	if len(docs) == 0 {
		return nil
	}

	keys := make([]store.Key, 0, len(docs))
	for _, doc := range docs {
		keys = append(keys, store.StringKey(social.AttrID, documentString(doc, social.AttrID)))
	}

	avatar := &types.AttributeValueMemberS{Value: newAvatar}
	if err := r.store.TransactSetField(ctx, r.cfg.Posts, keys, social.FieldCachedAvatar, avatar); err != nil {
		return fmt.Errorf("rewrite cached avatars for %s: %w", handle, err)
	}

	r.log.Info("avatar fan-out completed",
		"handle", handle,
		"posts", len(keys),
	)
	return nil
}
