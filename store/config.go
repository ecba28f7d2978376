package store

// Index names shared by the tables that carry them.
const (
	// PostIndex is the GSI on postId carried by comments, likes, and
	// notifications.
	PostIndex = "post-index"

	// AuthorIndex is the GSI on authorHandle carried by posts.
	AuthorIndex = "author-index"

	// RecipientIndex is the GSI on recipientHandle carried by notifications.
	RecipientIndex = "recipient-index"
)

// Config holds the table names for the five collections.
type Config struct {
	Posts         string
	Comments      string
	Likes         string
	Notifications string
	Users         string
}

// DefaultConfig returns the unprefixed table names.
func DefaultConfig() Config {
	return Config{
		Posts:         "posts",
		Comments:      "comments",
		Likes:         "likes",
		Notifications: "notifications",
		Users:         "users",
	}
}

// PrefixedConfig returns the default table names with an environment
// prefix applied (e.g. "natter-prod-" for "natter-prod-posts").
func PrefixedConfig(prefix string) Config {
	cfg := DefaultConfig()
	if prefix == "" {
		return cfg
	}
	cfg.Posts = prefix + cfg.Posts
	cfg.Comments = prefix + cfg.Comments
	cfg.Likes = prefix + cfg.Likes
	cfg.Notifications = prefix + cfg.Notifications
	cfg.Users = prefix + cfg.Users
	return cfg
}
