package models

import "time"

// PostKind classifies the invitation a post carries.
type PostKind string

const (
	PostKindHangout PostKind = "hangout"
	PostKindUrgent  PostKind = "urgent"
	PostKindHelp    PostKind = "help"
)

// VisibilityScope gates who may see a post by graph distance.
type VisibilityScope string

const (
	ScopeFirst  VisibilityScope = "first"
	ScopeSecond VisibilityScope = "second"
	ScopeThird  VisibilityScope = "third"
)

// ReplyStatus tracks the author's decision on a reply.
type ReplyStatus string

const (
	ReplyPending  ReplyStatus = "pending"
	ReplyAccepted ReplyStatus = "accepted"
	ReplyRejected ReplyStatus = "rejected"
)

const (
	DefaultReplyLimit  = 3
	DefaultAcceptLimit = 1
	MinLimit           = 1
	MaxLimit           = 6
	DefaultExpiryHours = 24
)

// Post is a time-bounded, location-tagged invitation.
type Post struct {
	ID                  int64           `db:"id" json:"id"`
	AuthorID            int64           `db:"author_id" json:"author_id"`
	Content             string          `db:"content" json:"content"`
	Kind                PostKind        `db:"kind" json:"kind"`
	VisibilityScope     VisibilityScope `db:"visibility_scope" json:"visibility_scope"`
	Longitude           float64         `db:"longitude" json:"longitude"`
	Latitude            float64         `db:"latitude" json:"latitude"`
	LocationDescription string          `db:"location_description" json:"location_description"`
	ReplyLimit          int             `db:"reply_limit" json:"reply_limit"`
	AcceptLimit         int             `db:"accept_limit" json:"accept_limit"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	ExpiresAt           time.Time       `db:"expires_at" json:"expires_at"`
	Replies             []Reply         `json:"replies,omitempty"`
}

// Reply is another user's response to a post.
type Reply struct {
	PostID    int64       `db:"post_id" json:"post_id"`
	UserID    int64       `db:"user_id" json:"user_id"`
	Status    ReplyStatus `db:"status" json:"status"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// Expired reports whether the post is past its lifetime at the given instant.
func (p Post) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// ValidKind reports whether k is one of the supported post kinds.
func ValidKind(k PostKind) bool {
	switch k {
	case PostKindHangout, PostKindUrgent, PostKindHelp:
		return true
	}
	return false
}

// ValidScope reports whether s is a supported visibility scope.
func ValidScope(s VisibilityScope) bool {
	switch s {
	case ScopeFirst, ScopeSecond, ScopeThird:
		return true
	}
	return false
}

// ClampLimit forces a reply/accept limit into the allowed range, applying
// the fallback when the caller left it unset.
func ClampLimit(v, fallback int) int {
	if v == 0 {
		v = fallback
	}
	if v < MinLimit {
		return MinLimit
	}
	if v > MaxLimit {
		return MaxLimit
	}
	return v
}

// ExpiryFrom computes the expiration instant for a post created at now.
// Non-positive hours fall back to the 24h default.
func ExpiryFrom(now time.Time, hours int) time.Time {
	if hours <= 0 {
		hours = DefaultExpiryHours
	}
	return now.Add(time.Duration(hours) * time.Hour)
}
