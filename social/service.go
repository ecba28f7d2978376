package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/google/uuid"

	"github.com/natterhq/natter/internal/key"
	"github.com/natterhq/natter/store"
)

// Service implements the request-path operations. Derived state (counters,
// notifications, cached avatars, cascade cleanup) is maintained partly here
// (counter deltas ride the same request) and partly by the reactors in
// package stream.
type Service struct {
	store *store.Store
	cfg   store.Config
	log   *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewService creates a Service over the given store and table config.
func NewService(st *store.Store, cfg store.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store: st,
		cfg:   cfg,
		log:   logger,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// CreatePost writes a new post authored by the actor. Counters start at
// zero and the author's avatar is cached on the post.
func (s *Service) CreatePost(ctx context.Context, actor Identity, body string) (*Post, error) {
	post := Post{
		ID:                 s.newID(),
		AuthorHandle:       actor.Handle,
		Body:               body,
		CreatedAt:          s.timestamp(),
		CachedAuthorAvatar: actor.AvatarURL,
	}

	item, err := attributevalue.MarshalMap(post)
	if err != nil {
		return nil, fmt.Errorf("marshal post: %w", err)
	}
	if err := s.store.Put(ctx, s.cfg.Posts, item); err != nil {
		return nil, err
	}
	return &post, nil
}

// GetPost returns a post with its comments and likes.
func (s *Service) GetPost(ctx context.Context, postID string) (*PostDetail, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	detail := PostDetail{Post: *post}

	commentDocs, err := s.store.QueryIndex(ctx, s.cfg.Comments, store.PostIndex, AttrPostID, postID)
	if err != nil {
		return nil, err
	}
	for _, doc := range commentDocs {
		var c Comment
		if err := attributevalue.UnmarshalMap(doc, &c); err != nil {
			return nil, fmt.Errorf("unmarshal comment: %w", err)
		}
		detail.Comments = append(detail.Comments, c)
	}
	sort.Slice(detail.Comments, func(i, j int) bool {
		return detail.Comments[i].CreatedAt < detail.Comments[j].CreatedAt
	})

	likeDocs, err := s.store.QueryIndex(ctx, s.cfg.Likes, store.PostIndex, AttrPostID, postID)
	if err != nil {
		return nil, err
	}
	for _, doc := range likeDocs {
		var l Like
		if err := attributevalue.UnmarshalMap(doc, &l); err != nil {
			return nil, fmt.Errorf("unmarshal like: %w", err)
		}
		detail.Likes = append(detail.Likes, l)
	}

	return &detail, nil
}

// ListPosts returns all posts, newest first.
func (s *Service) ListPosts(ctx context.Context) ([]Post, error) {
	docs, err := s.store.ScanAll(ctx, s.cfg.Posts)
	if err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(docs))
	for _, doc := range docs {
		var p Post
		if err := attributevalue.UnmarshalMap(doc, &p); err != nil {
			return nil, fmt.Errorf("unmarshal post: %w", err)
		}
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt > posts[j].CreatedAt
	})
	return posts, nil
}

// CreateComment writes a comment on a post and increments the post's
// comment counter. The two writes are not atomic with each other; the
// counter delta itself is atomic, so concurrent comments cannot lose
// increments.
func (s *Service) CreateComment(ctx context.Context, postID string, actor Identity, body string) (*Comment, error) {
	if _, err := s.getPost(ctx, postID); err != nil {
		return nil, err
	}

	comment := Comment{
		ID:                 s.newID(),
		PostID:             postID,
		AuthorHandle:       actor.Handle,
		Body:               body,
		CreatedAt:          s.timestamp(),
		CachedAuthorAvatar: actor.AvatarURL,
	}

	item, err := attributevalue.MarshalMap(comment)
	if err != nil {
		return nil, fmt.Errorf("marshal comment: %w", err)
	}
	if err := s.store.Put(ctx, s.cfg.Comments, item); err != nil {
		return nil, err
	}

	if err := s.bumpCounter(ctx, postID, FieldCommentCount, 1); err != nil {
		return nil, err
	}
	return &comment, nil
}

// LikePost records a like by the actor and increments the post's like
// counter. The like id is deterministic from (postID, actor), so a second
// like of the same post by the same actor collides and reports ErrConflict
// without touching the counter.
func (s *Service) LikePost(ctx context.Context, postID string, actor Identity) (*Post, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	like := Like{
		ID:           key.LikeID(postID, actor.Handle),
		PostID:       postID,
		AuthorHandle: actor.Handle,
		CreatedAt:    s.timestamp(),
	}

	item, err := attributevalue.MarshalMap(like)
	if err != nil {
		return nil, fmt.Errorf("marshal like: %w", err)
	}
	if err := s.store.Create(ctx, s.cfg.Likes, AttrID, item); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, fmt.Errorf("post already liked: %w", ErrConflict)
		}
		return nil, err
	}

	if err := s.bumpCounter(ctx, postID, FieldLikeCount, 1); err != nil {
		return nil, err
	}
	post.LikeCount++
	return post, nil
}

// UnlikePost removes the actor's like and decrements the post's like
// counter. A missing like reports ErrConflict.
func (s *Service) UnlikePost(ctx context.Context, postID string, actor Identity) (*Post, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	likeKey := store.StringKey(AttrID, key.LikeID(postID, actor.Handle))
	if err := s.store.DeleteExisting(ctx, s.cfg.Likes, likeKey); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("post not liked: %w", ErrConflict)
		}
		return nil, err
	}

	if err := s.bumpCounter(ctx, postID, FieldLikeCount, -1); err != nil {
		return nil, err
	}
	post.LikeCount--
	return post, nil
}

// DeletePost removes a post. Only the author may delete it. Dependent
// comments, likes, and notifications are removed asynchronously by the
// cascade reactor once the delete event is delivered.
func (s *Service) DeletePost(ctx context.Context, postID string, actor Identity) error {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorHandle != actor.Handle {
		return fmt.Errorf("post belongs to %s: %w", post.AuthorHandle, ErrForbidden)
	}
	return s.store.Delete(ctx, s.cfg.Posts, store.StringKey(AttrID, postID))
}

// CreateUser registers a new user document. A taken handle reports
// ErrConflict.
func (s *Service) CreateUser(ctx context.Context, user User) (*User, error) {
	user.CreatedAt = s.timestamp()
	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}
	if err := s.store.Create(ctx, s.cfg.Users, AttrHandle, item); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, fmt.Errorf("handle %s taken: %w", user.Handle, ErrConflict)
		}
		return nil, err
	}
	return &user, nil
}

// GetUser returns a user's profile with their posts, newest first.
func (s *Service) GetUser(ctx context.Context, handle string) (*Profile, error) {
	user, err := s.getUser(ctx, handle)
	if err != nil {
		return nil, err
	}

	profile := Profile{User: *user}
	docs, err := s.store.QueryIndex(ctx, s.cfg.Posts, store.AuthorIndex, AttrAuthorHandle, handle)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		var p Post
		if err := attributevalue.UnmarshalMap(doc, &p); err != nil {
			return nil, fmt.Errorf("unmarshal post: %w", err)
		}
		profile.Posts = append(profile.Posts, p)
	}
	sort.Slice(profile.Posts, func(i, j int) bool {
		return profile.Posts[i].CreatedAt > profile.Posts[j].CreatedAt
	})
	return &profile, nil
}

// UpdateProfile rewrites the editable non-avatar profile fields. Avatar
// fan-out keys off the avatarUrl field alone, so profile edits through
// here never trigger a post rewrite.
func (s *Service) UpdateProfile(ctx context.Context, handle string, update ProfileUpdate) (*User, error) {
	user, err := s.getUser(ctx, handle)
	if err != nil {
		return nil, err
	}

	user.Bio = update.Bio
	user.Location = update.Location
	user.Website = update.Website
	return s.putUser(ctx, user)
}

// UpdateAvatar points the user at a new (already uploaded) avatar URL.
// Rewriting the cached copies on the user's posts happens asynchronously
// in the fan-out reactor.
func (s *Service) UpdateAvatar(ctx context.Context, handle, avatarURL string) (*User, error) {
	user, err := s.getUser(ctx, handle)
	if err != nil {
		return nil, err
	}

	user.AvatarURL = avatarURL
	return s.putUser(ctx, user)
}

// ListNotifications returns the actor's notifications, newest first.
func (s *Service) ListNotifications(ctx context.Context, handle string) ([]Notification, error) {
	docs, err := s.store.QueryIndex(ctx, s.cfg.Notifications, store.RecipientIndex, AttrRecipient, handle)
	if err != nil {
		return nil, err
	}

	notifications := make([]Notification, 0, len(docs))
	for _, doc := range docs {
		var n Notification
		if err := attributevalue.UnmarshalMap(doc, &n); err != nil {
			return nil, fmt.Errorf("unmarshal notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt > notifications[j].CreatedAt
	})
	return notifications, nil
}

// MarkNotificationsRead marks the given notifications read in one atomic
// batch. Ids that are missing or belong to another recipient are skipped.
func (s *Service) MarkNotificationsRead(ctx context.Context, handle string, ids []string) error {
	var keys []store.Key
	for _, id := range ids {
		doc, err := s.store.Get(ctx, s.cfg.Notifications, store.StringKey(AttrID, id))
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		var n Notification
		if err := attributevalue.UnmarshalMap(doc, &n); err != nil {
			return fmt.Errorf("unmarshal notification: %w", err)
		}
		if n.RecipientHandle != handle {
			s.log.Warn("skipping notification owned by another recipient",
				"id", id,
				"actor", handle,
			)
			continue
		}
		keys = append(keys, store.StringKey(AttrID, id))
	}

	if len(keys) == 0 {
		return nil
	}
	read, err := attributevalue.Marshal(true)
	if err != nil {
		return err
	}
	return s.store.TransactSetField(ctx, s.cfg.Notifications, keys, FieldRead, read)
}

// getPost reads a post, mapping a miss to ErrNotFound.
func (s *Service) getPost(ctx context.Context, postID string) (*Post, error) {
	doc, err := s.store.Get(ctx, s.cfg.Posts, store.StringKey(AttrID, postID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var post Post
	if err := attributevalue.UnmarshalMap(doc, &post); err != nil {
		return nil, fmt.Errorf("unmarshal post: %w", err)
	}
	return &post, nil
}

// getUser reads a user, mapping a miss to ErrNotFound.
func (s *Service) getUser(ctx context.Context, handle string) (*User, error) {
	doc, err := s.store.Get(ctx, s.cfg.Users, store.StringKey(AttrHandle, handle))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("user %s: %w", handle, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var user User
	if err := attributevalue.UnmarshalMap(doc, &user); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &user, nil
}

func (s *Service) putUser(ctx context.Context, user *User) (*User, error) {
	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}
	if err := s.store.Put(ctx, s.cfg.Users, item); err != nil {
		return nil, err
	}
	return user, nil
}

// bumpCounter applies a counter delta on a post, mapping a failed
// existence condition to ErrNotFound (the post vanished mid-request).
func (s *Service) bumpCounter(ctx context.Context, postID, field string, delta int) error {
	err := s.store.AddToCounter(ctx, s.cfg.Posts, store.StringKey(AttrID, postID), field, delta)
	if errors.Is(err, store.ErrConditionFailed) {
		return fmt.Errorf("post %s vanished before %s delta: %w", postID, field, ErrNotFound)
	}
	return err
}
