package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/squadran/squadran-api/database"
	"github.com/squadran/squadran-api/model"
)

// PostService owns the feed, job board and events board: the post moderation
// lifecycle (PENDING -> VERIFIED, or rejection = deletion), likes and
// comments.
type PostService struct {
	store database.Storage
}

// NewPostService creates a new post service
func NewPostService(store database.Storage) *PostService {
	return &PostService{store: store}
}

// CreatePostInput is the shape of a new post submission. Author fields are
// snapshotted from the caller at creation time.
type CreatePostInput struct {
	Type    model.PostType
	Title   string
	Content string
	Image   string
	Company string
	JobLink string
}

// Create submits a post into its institution's moderation queue. Every post
// starts PENDING with zero likes and no comments, regardless of type or
// author role.
func (s *PostService) Create(ctx context.Context, caller *model.UserProfile, in CreatePostInput) (*model.Post, error) {
	if caller == nil {
		return nil, accessDeniedf("authentication required")
	}
	if !caller.Role.Valid() {
		return nil, accessDeniedf("unknown role %q", caller.Role)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, validationf("post content is required")
	}
	if _, ok := model.ParsePostType(string(in.Type)); !ok {
		return nil, validationf("unknown post type %q", in.Type)
	}

	post := model.Post{
		ID:            "post_" + uuid.New().String(),
		InstitutionID: caller.InstitutionID,
		AuthorID:      caller.UID,
		AuthorName:    caller.Name,
		AuthorRole:    caller.Role,
		Title:         in.Title,
		Content:       in.Content,
		Image:         in.Image,
		Company:       in.Company,
		JobLink:       in.JobLink,
		Likes:         0,
		LikedBy:       []string{},
		Comments:      []model.Comment{},
		Status:        model.PostPending,
		Type:          in.Type,
		Timestamp:     model.NowMillis(),
	}
	if err := s.store.Put(ctx, database.CollectionPosts, post.ID, post); err != nil {
		return nil, storeErr(err)
	}
	return &post, nil
}

// Feed returns an institution's posts of one type, newest first. With
// onlyVerified set, pending posts are excluded (the reader-facing view).
func (s *PostService) Feed(ctx context.Context, institutionID string, postType model.PostType, onlyVerified bool) ([]model.Post, error) {
	filters := []database.Filter{
		database.Eq("institutionId", institutionID),
		database.Eq("type", string(postType)),
	}
	if onlyVerified {
		filters = append(filters, database.Eq("status", string(model.PostVerified)))
	}

	var posts []model.Post
	if err := s.store.List(ctx, database.CollectionPosts, &posts, filters...); err != nil {
		return nil, storeErr(err)
	}
	sortPostsNewestFirst(posts)
	return posts, nil
}

// Pending returns an institution's moderation queue. Admin only.
func (s *PostService) Pending(ctx context.Context, caller *model.UserProfile, institutionID string) ([]model.Post, error) {
	if err := requireInstitutionAdmin(caller, institutionID); err != nil {
		return nil, err
	}

	var posts []model.Post
	err := s.store.List(ctx, database.CollectionPosts, &posts,
		database.Eq("institutionId", institutionID),
		database.Eq("status", string(model.PostPending)))
	if err != nil {
		return nil, storeErr(err)
	}
	sortPostsNewestFirst(posts)
	return posts, nil
}

// ByAuthor returns every post by one author across statuses, newest first.
func (s *PostService) ByAuthor(ctx context.Context, authorID string) ([]model.Post, error) {
	var posts []model.Post
	err := s.store.List(ctx, database.CollectionPosts, &posts,
		database.Eq("authorId", authorID))
	if err != nil {
		return nil, storeErr(err)
	}
	sortPostsNewestFirst(posts)
	return posts, nil
}

// Verify moves a pending post to VERIFIED. This is the only path to
// VERIFIED, and VERIFIED is terminal. Admin of the post's institution only.
func (s *PostService) Verify(ctx context.Context, caller *model.UserProfile, postID string) error {
	err := s.store.Mutate(ctx, database.CollectionPosts, postID, func(raw []byte) (interface{}, error) {
		var post model.Post
		if err := json.Unmarshal(raw, &post); err != nil {
			return nil, err
		}
		if err := requireInstitutionAdmin(caller, post.InstitutionID); err != nil {
			return nil, err
		}
		post.Status = model.PostVerified
		return post, nil
	})
	return storeErrOrDomain(err)
}

// Delete removes a post outright (the moderation "reject" path, also used by
// admins to take content down). Admin of the post's institution only.
func (s *PostService) Delete(ctx context.Context, caller *model.UserProfile, postID string) error {
	var post model.Post
	if err := s.store.Get(ctx, database.CollectionPosts, postID, &post); err != nil {
		return storeErr(err)
	}
	if err := requireInstitutionAdmin(caller, post.InstitutionID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, database.CollectionPosts, postID); err != nil {
		return storeErr(err)
	}
	return nil
}

// ToggleLike flips the caller's like on a post: present in the liker set
// means remove-and-decrement, absent means add-and-increment. The whole
// read-modify-write runs under the store's per-document lock, so concurrent
// toggles by the same user cannot duplicate likes, and the count always
// equals the liker-set size.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID string) (*model.Post, error) {
	if userID == "" {
		return nil, validationf("user id is required")
	}

	var updated model.Post
	err := s.store.Mutate(ctx, database.CollectionPosts, postID, func(raw []byte) (interface{}, error) {
		var post model.Post
		if err := json.Unmarshal(raw, &post); err != nil {
			return nil, err
		}

		liked := false
		kept := post.LikedBy[:0]
		for _, uid := range post.LikedBy {
			if uid == userID {
				liked = true
				continue
			}
			kept = append(kept, uid)
		}
		if liked {
			post.LikedBy = kept
		} else {
			post.LikedBy = append(post.LikedBy, userID)
		}
		post.Likes = len(post.LikedBy)

		updated = post
		return post, nil
	})
	if err != nil {
		return nil, storeErrOrDomain(err)
	}
	return &updated, nil
}

// AddComment appends a comment to a post in arrival order. Fails with
// ErrNotFound when the post does not exist.
func (s *PostService) AddComment(ctx context.Context, postID, userID, userName, text string) (*model.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, validationf("comment text is required")
	}

	comment := model.Comment{
		ID:        "c_" + uuid.New().String(),
		UserID:    userID,
		UserName:  userName,
		Text:      text,
		Timestamp: model.NowMillis(),
		Read:      false,
	}

	err := s.store.Mutate(ctx, database.CollectionPosts, postID, func(raw []byte) (interface{}, error) {
		var post model.Post
		if err := json.Unmarshal(raw, &post); err != nil {
			return nil, err
		}
		post.Comments = append(post.Comments, comment)
		return post, nil
	})
	if err != nil {
		return nil, storeErrOrDomain(err)
	}
	return &comment, nil
}

func sortPostsNewestFirst(posts []model.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Timestamp > posts[j].Timestamp
	})
}

func requireInstitutionAdmin(caller *model.UserProfile, institutionID string) error {
	if caller == nil {
		return accessDeniedf("authentication required")
	}
	if caller.Role == model.RoleSuperAdmin {
		return nil
	}
	if caller.Role != model.RoleInstitutionAdmin || caller.InstitutionID != institutionID {
		return accessDeniedf("institution admin privileges required")
	}
	return nil
}

// storeErrOrDomain keeps domain errors raised inside a Mutate callback
// (access denied, validation) intact instead of wrapping them as transport
// failures.
func storeErrOrDomain(err error) error {
	if err == nil {
		return nil
	}
	for _, domain := range []error{ErrAccessDenied, ErrValidation, ErrConflict, ErrBlocked} {
		if errors.Is(err, domain) {
			return err
		}
	}
	return storeErr(err)
}
