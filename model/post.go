package model

import "time"

// PostType selects which board a post belongs to.
type PostType string

const (
	PostNewsletter PostType = "NEWSLETTER"
	PostJob        PostType = "JOB"
	PostEvents     PostType = "EVENTS"
)

// ParsePostType converts a raw string into a PostType, rejecting unknown
// values at the boundary.
func ParsePostType(s string) (PostType, bool) {
	switch PostType(s) {
	case PostNewsletter, PostJob, PostEvents:
		return PostType(s), true
	default:
		return "", false
	}
}

// PostStatus is the moderation state of a post. The only transition is
// PENDING -> VERIFIED; rejection deletes the post outright.
type PostStatus string

const (
	PostPending  PostStatus = "PENDING"
	PostVerified PostStatus = "VERIFIED"
)

// Comment is owned by its parent post: appended in arrival order, never
// edited or removed on its own.
type Comment struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	Read      bool   `json:"read"`
}

// Post is a feed, job-board or events-board entry. Author fields are a
// denormalized snapshot taken at creation time. Likes must always equal
// len(LikedBy).
type Post struct {
	ID            string     `json:"id"`
	InstitutionID string     `json:"institutionId"`
	AuthorID      string     `json:"authorId"`
	AuthorName    string     `json:"authorName"`
	AuthorRole    Role       `json:"authorRole"`
	Title         string     `json:"title,omitempty"`
	Content       string     `json:"content"`
	Image         string     `json:"image,omitempty"`
	Company       string     `json:"company,omitempty"`
	JobLink       string     `json:"jobLink,omitempty"`
	Likes         int        `json:"likes"`
	LikedBy       []string   `json:"likedBy"`
	Comments      []Comment  `json:"comments"`
	Status        PostStatus `json:"status"`
	Type          PostType   `json:"type"`
	Timestamp     int64      `json:"timestamp"`
}

// NowMillis returns the current time in the format stored on documents
// (Unix milliseconds).
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
