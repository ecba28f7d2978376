package stream

import (
	"log/slog"

	"github.com/natterhq/natter/social"
	"github.com/natterhq/natter/store"
)

// Reactors holds the shared dependencies of the individual reactors.
type Reactors struct {
	store *store.Store
	cfg   store.Config
	log   *slog.Logger
}

// NewReactors creates the reactor set.
func NewReactors(s *store.Store, cfg store.Config, logger *slog.Logger) *Reactors {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reactors{
		store: s,
		cfg:   cfg,
		log:   logger,
	}
}

// NewSocialDispatcher wires every reactor to its triggering mutation:
//
//	likes    INSERT -> like notification
//	likes    REMOVE -> notification invalidation
//	comments INSERT -> comment notification
//	posts    REMOVE -> cascade deletion of dependents
//	users    MODIFY -> cached avatar fan-out
//
// Comment deletions intentionally have no route: comment-sourced
// notifications are never retracted, matching observed product behavior.
func NewSocialDispatcher(s *store.Store, cfg store.Config, logger *slog.Logger) *Dispatcher {
	r := NewReactors(s, cfg, logger)

	d := NewDispatcher(logger)
	d.Register(cfg.Likes, KindInsert, r.GenerateNotification(social.NotificationLike))
	d.Register(cfg.Likes, KindRemove, r.InvalidateNotification)
	d.Register(cfg.Comments, KindInsert, r.GenerateNotification(social.NotificationComment))
	d.Register(cfg.Posts, KindRemove, r.CascadePostDelete)
	d.Register(cfg.Users, KindModify, r.PropagateAvatar)
	return d
}
