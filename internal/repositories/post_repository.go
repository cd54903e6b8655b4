package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"linkup-service/internal/geo"
	"linkup-service/internal/models"
)

var (
	ErrPostNotFound        = errors.New("post not found")
	ErrPostExpired         = errors.New("post has expired")
	ErrReplyQuotaExceeded  = errors.New("maximum replies reached")
	ErrAcceptQuotaExceeded = errors.New("maximum accepts reached")
	ErrDuplicateReply      = errors.New("user already replied to this post")
	ErrReplyNotFound       = errors.New("reply not found")
	ErrNotPostAuthor       = errors.New("only the post author may resolve replies")
	ErrInvalidTransition   = errors.New("reply status can no longer change")
	ErrOwnPostReply        = errors.New("cannot reply to your own post")
)

// PostFilter narrows discovery queries. Zero values mean "no restriction".
type PostFilter struct {
	Kind  models.PostKind
	Scope models.VisibilityScope
}

// PostLocation pairs a post id with its coordinates, for index warmup.
type PostLocation struct {
	PostID int64   `db:"id"`
	Point  geo.Point
}

// PostRepository abstracts post and reply persistence.
type PostRepository interface {
	CreatePost(ctx context.Context, post models.Post) (models.Post, error)
	GetPost(ctx context.Context, postID int64) (models.Post, error)
	ListActive(ctx context.Context, filter PostFilter, now time.Time, limit int) ([]models.Post, error)
	ListActiveByIDs(ctx context.Context, ids []int64, filter PostFilter, now time.Time, limit int) ([]models.Post, error)
	ActiveLocations(ctx context.Context, now time.Time) ([]PostLocation, error)
	SubmitReply(ctx context.Context, postID, userID int64, now time.Time) error
	ResolveReply(ctx context.Context, postID, authorID, targetUserID int64, status models.ReplyStatus) error
}

// PostRepo is a sqlx implementation of PostRepository.
type PostRepo struct {
	db *sqlx.DB
}

// NewPostRepo constructs a PostRepo.
func NewPostRepo(db *sqlx.DB) *PostRepo {
	return &PostRepo{db: db}
}

const postColumns = `id, author_id, content, kind, visibility_scope, longitude, latitude, location_description, reply_limit, accept_limit, created_at, expires_at`

// CreatePost inserts a post and returns it with generated fields populated.
// Limits are assumed to be clamped by the caller.
func (r *PostRepo) CreatePost(ctx context.Context, post models.Post) (models.Post, error) {
	var created models.Post
	err := r.db.QueryRowxContext(ctx, `INSERT INTO posts
        (author_id, content, kind, visibility_scope, longitude, latitude, location_description, reply_limit, accept_limit, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING `+postColumns,
		post.AuthorID, post.Content, post.Kind, post.VisibilityScope,
		post.Longitude, post.Latitude, post.LocationDescription,
		post.ReplyLimit, post.AcceptLimit, post.ExpiresAt).StructScan(&created)
	if err != nil {
		return models.Post{}, err
	}
	return created, nil
}

// GetPost fetches a post with its replies.
func (r *PostRepo) GetPost(ctx context.Context, postID int64) (models.Post, error) {
	var post models.Post
	err := r.db.GetContext(ctx, &post, `SELECT `+postColumns+` FROM posts WHERE id=$1`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Post{}, ErrPostNotFound
	}
	if err != nil {
		return models.Post{}, err
	}

	if err := r.db.SelectContext(ctx, &post.Replies,
		`SELECT post_id, user_id, status, created_at FROM post_replies WHERE post_id=$1 ORDER BY created_at ASC`, postID); err != nil {
		return models.Post{}, err
	}
	return post, nil
}

// ListActive returns unexpired posts matching the filter, newest first.
func (r *PostRepo) ListActive(ctx context.Context, filter PostFilter, now time.Time, limit int) ([]models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
        WHERE expires_at > $1
        AND ($2 = '' OR kind = $2)
        AND ($3 = '' OR visibility_scope = $3)
        ORDER BY created_at DESC
        LIMIT $4`
	var posts []models.Post
	err := r.db.SelectContext(ctx, &posts, query, now, string(filter.Kind), string(filter.Scope), limit)
	return posts, err
}

// ListActiveByIDs returns the unexpired subset of the given posts matching
// the filter, newest first. Used by geo discovery with candidate ids from
// the spatial index.
func (r *PostRepo) ListActiveByIDs(ctx context.Context, ids []int64, filter PostFilter, now time.Time, limit int) ([]models.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + postColumns + ` FROM posts
        WHERE id = ANY($1)
        AND expires_at > $2
        AND ($3 = '' OR kind = $3)
        AND ($4 = '' OR visibility_scope = $4)
        ORDER BY created_at DESC
        LIMIT $5`
	var posts []models.Post
	err := r.db.SelectContext(ctx, &posts, query, pq.Array(ids), now, string(filter.Kind), string(filter.Scope), limit)
	return posts, err
}

// ActiveLocations returns id and coordinates for every unexpired post.
func (r *PostRepo) ActiveLocations(ctx context.Context, now time.Time) ([]PostLocation, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT id, longitude, latitude FROM posts WHERE expires_at > $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []PostLocation
	for rows.Next() {
		var loc PostLocation
		if err := rows.Scan(&loc.PostID, &loc.Point.Longitude, &loc.Point.Latitude); err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// SubmitReply appends a pending reply, enforcing expiry, the reply quota and
// the one-reply-per-user rule. The post row is locked for the duration so
// concurrent submits near the limit cannot both succeed.
func (r *PostRepo) SubmitReply(ctx context.Context, postID, userID int64, now time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var post struct {
		AuthorID   int64     `db:"author_id"`
		ReplyLimit int       `db:"reply_limit"`
		ExpiresAt  time.Time `db:"expires_at"`
	}
	err = tx.GetContext(ctx, &post,
		`SELECT author_id, reply_limit, expires_at FROM posts WHERE id=$1 FOR UPDATE`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrPostNotFound
		return err
	}
	if err != nil {
		return err
	}

	if now.After(post.ExpiresAt) {
		err = ErrPostExpired
		return err
	}
	if post.AuthorID == userID {
		err = ErrOwnPostReply
		return err
	}

	var replied bool
	if err = tx.GetContext(ctx, &replied,
		`SELECT EXISTS(SELECT 1 FROM post_replies WHERE post_id=$1 AND user_id=$2)`, postID, userID); err != nil {
		return err
	}
	if replied {
		err = ErrDuplicateReply
		return err
	}

	var count int
	if err = tx.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM post_replies WHERE post_id=$1`, postID); err != nil {
		return err
	}
	if count >= post.ReplyLimit {
		err = ErrReplyQuotaExceeded
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO post_replies (post_id, user_id, status) VALUES ($1, $2, $3)`,
		postID, userID, models.ReplyPending); err != nil {
		return err
	}

	return tx.Commit()
}

// ResolveReply applies the author's accept/reject decision. Re-applying the
// current status is a no-op; any other transition out of a terminal status
// fails. Accepting checks the accept quota under the post row lock. Expired
// posts may still be resolved; expiry only stops discovery and new replies.
func (r *PostRepo) ResolveReply(ctx context.Context, postID, authorID, targetUserID int64, status models.ReplyStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var post struct {
		AuthorID    int64 `db:"author_id"`
		AcceptLimit int   `db:"accept_limit"`
	}
	err = tx.GetContext(ctx, &post,
		`SELECT author_id, accept_limit FROM posts WHERE id=$1 FOR UPDATE`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrPostNotFound
		return err
	}
	if err != nil {
		return err
	}

	if post.AuthorID != authorID {
		err = ErrNotPostAuthor
		return err
	}

	var current models.ReplyStatus
	err = tx.GetContext(ctx, &current,
		`SELECT status FROM post_replies WHERE post_id=$1 AND user_id=$2`, postID, targetUserID)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrReplyNotFound
		return err
	}
	if err != nil {
		return err
	}

	if current == status {
		// idempotent re-application
		return tx.Commit()
	}
	if current != models.ReplyPending {
		err = ErrInvalidTransition
		return err
	}

	if status == models.ReplyAccepted {
		var accepted int
		if err = tx.GetContext(ctx, &accepted,
			`SELECT COUNT(*) FROM post_replies WHERE post_id=$1 AND status=$2`, postID, models.ReplyAccepted); err != nil {
			return err
		}
		if accepted >= post.AcceptLimit {
			err = ErrAcceptQuotaExceeded
			return err
		}
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE post_replies SET status=$1 WHERE post_id=$2 AND user_id=$3`,
		status, postID, targetUserID); err != nil {
		return err
	}

	return tx.Commit()
}
