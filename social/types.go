package social

// Attribute names referenced outside marshalled structs (index keys,
// stream images, counter fields).
const (
	AttrID           = "id"
	AttrHandle       = "handle"
	AttrPostID       = "postId"
	AttrAuthorHandle = "authorHandle"
	AttrRecipient    = "recipientHandle"
	AttrAvatarURL    = "avatarUrl"
	AttrCreatedAt    = "createdAt"

	FieldLikeCount    = "likeCount"
	FieldCommentCount = "commentCount"
	FieldCachedAvatar = "cachedAuthorAvatar"
	FieldRead         = "read"
)

// Notification types.
const (
	NotificationLike    = "like"
	NotificationComment = "comment"
)

// Identity is the authenticated caller attached to each write request.
// Verification happens upstream (API Gateway authorizer); by the time it
// reaches this package it is trusted.
type Identity struct {
	Handle    string `json:"handle"`
	AvatarURL string `json:"avatarUrl"`
}

// Post is a user post. LikeCount and CommentCount are derived fields,
// mutated only through atomic counter deltas, never by the client-facing
// update path. CachedAuthorAvatar is a denormalized copy of the author's
// avatar kept current by the fan-out reactor.
type Post struct {
	ID                 string `dynamodbav:"id" json:"id"`
	AuthorHandle       string `dynamodbav:"authorHandle" json:"authorHandle"`
	Body               string `dynamodbav:"body" json:"body"`
	CreatedAt          string `dynamodbav:"createdAt" json:"createdAt"`
	LikeCount          int    `dynamodbav:"likeCount" json:"likeCount"`
	CommentCount       int    `dynamodbav:"commentCount" json:"commentCount"`
	CachedAuthorAvatar string `dynamodbav:"cachedAuthorAvatar" json:"cachedAuthorAvatar"`
}

// Comment is a comment on a post.
type Comment struct {
	ID                 string `dynamodbav:"id" json:"id"`
	PostID             string `dynamodbav:"postId" json:"postId"`
	AuthorHandle       string `dynamodbav:"authorHandle" json:"authorHandle"`
	Body               string `dynamodbav:"body" json:"body"`
	CreatedAt          string `dynamodbav:"createdAt" json:"createdAt"`
	CachedAuthorAvatar string `dynamodbav:"cachedAuthorAvatar" json:"cachedAuthorAvatar"`
}

// Like marks that an actor liked a post. Its id is deterministic from
// (postId, authorHandle), so at most one like per pair can exist.
type Like struct {
	ID           string `dynamodbav:"id" json:"id"`
	PostID       string `dynamodbav:"postId" json:"postId"`
	AuthorHandle string `dynamodbav:"authorHandle" json:"authorHandle"`
	CreatedAt    string `dynamodbav:"createdAt" json:"createdAt"`
}

// Notification tells a post author someone liked or commented on their
// post. Its id equals the originating like/comment document id, which
// makes generation idempotent under redelivery.
type Notification struct {
	ID              string `dynamodbav:"id" json:"id"`
	RecipientHandle string `dynamodbav:"recipientHandle" json:"recipientHandle"`
	SenderHandle    string `dynamodbav:"senderHandle" json:"senderHandle"`
	PostID          string `dynamodbav:"postId" json:"postId"`
	Type            string `dynamodbav:"type" json:"type"`
	CreatedAt       string `dynamodbav:"createdAt" json:"createdAt"`
	Read            bool   `dynamodbav:"read" json:"read"`
}

// User is a registered account, keyed by handle. AvatarURL is the source
// of truth for the cached copies on the user's posts.
type User struct {
	Handle    string `dynamodbav:"handle" json:"handle"`
	Email     string `dynamodbav:"email" json:"email"`
	Bio       string `dynamodbav:"bio,omitempty" json:"bio,omitempty"`
	Location  string `dynamodbav:"location,omitempty" json:"location,omitempty"`
	Website   string `dynamodbav:"website,omitempty" json:"website,omitempty"`
	AvatarURL string `dynamodbav:"avatarUrl" json:"avatarUrl"`
	CreatedAt string `dynamodbav:"createdAt" json:"createdAt"`
}

// PostDetail is a post with its comments and likes.
type PostDetail struct {
	Post
	Comments []Comment `json:"comments"`
	Likes    []Like    `json:"likes"`
}

// Profile is a user with their posts.
type Profile struct {
	User
	Posts []Post `json:"posts"`
}

// ProfileUpdate carries the editable non-avatar profile fields.
type ProfileUpdate struct {
	Bio      string `json:"bio"`
	Location string `json:"location"`
	Website  string `json:"website"`
}
