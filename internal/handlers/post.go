package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"linkup-service/internal/geo"
	"linkup-service/internal/graph"
	"linkup-service/internal/match"
	"linkup-service/internal/models"
	"linkup-service/internal/observability"
	"linkup-service/internal/repositories"
	"linkup-service/internal/telemetry"
)

const discoverLimit = 20

const defaultRadiusMeters = 10000

// PostHandler manages invitation post endpoints.
type PostHandler struct {
	postRepo    repositories.PostRepository
	geoIndex    *geo.Index
	connections graph.ConnectionGraph
	coordinator *match.Coordinator
	audit       *telemetry.AuditEmitter
	now         func() time.Time
}

// NewPostHandler builds a PostHandler.
func NewPostHandler(postRepo repositories.PostRepository, geoIndex *geo.Index, connections graph.ConnectionGraph, coordinator *match.Coordinator, audit *telemetry.AuditEmitter) *PostHandler {
	return &PostHandler{
		postRepo:    postRepo,
		geoIndex:    geoIndex,
		connections: connections,
		coordinator: coordinator,
		audit:       audit,
		now:         time.Now,
	}
}

type locationRequest struct {
	Longitude   float64 `json:"longitude"`
	Latitude    float64 `json:"latitude"`
	Description string  `json:"description" binding:"required"`
}

// CreatePost handles POST /posts.
func (h *PostHandler) CreatePost(c *gin.Context) {
	userID := c.GetInt64("userID")

	var req struct {
		Content         string                 `json:"content" binding:"required"`
		Kind            models.PostKind        `json:"kind"`
		VisibilityScope models.VisibilityScope `json:"visibility_scope"`
		Location        locationRequest        `json:"location" binding:"required"`
		ExpiresInHours  int                    `json:"expires_in_hours"`
		ReplyLimit      int                    `json:"reply_limit"`
		AcceptLimit     int                    `json:"accept_limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Kind == "" {
		req.Kind = models.PostKindHangout
	}
	if req.VisibilityScope == "" {
		req.VisibilityScope = models.ScopeSecond
	}
	if !models.ValidKind(req.Kind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post kind"})
		return
	}
	if !models.ValidScope(req.VisibilityScope) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid visibility scope"})
		return
	}

	point := geo.Point{Longitude: req.Location.Longitude, Latitude: req.Location.Latitude}
	if err := geo.ValidatePoint(point); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := h.now()
	post := models.Post{
		AuthorID:            userID,
		Content:             req.Content,
		Kind:                req.Kind,
		VisibilityScope:     req.VisibilityScope,
		Longitude:           point.Longitude,
		Latitude:            point.Latitude,
		LocationDescription: req.Location.Description,
		ReplyLimit:          models.ClampLimit(req.ReplyLimit, models.DefaultReplyLimit),
		AcceptLimit:         models.ClampLimit(req.AcceptLimit, models.DefaultAcceptLimit),
		ExpiresAt:           models.ExpiryFrom(now, req.ExpiresInHours),
	}

	created, err := h.postRepo.CreatePost(c.Request.Context(), post)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create post"})
		return
	}

	h.geoIndex.Insert(created.ID, point)
	observability.IncPostCreated()
	h.audit.Emit(c.Request.Context(), "INFO",
		fmt.Sprintf("post created id=%d kind=%s", created.ID, created.Kind),
		requestIDFromContext(c), userIDFromContext(c))

	c.JSON(http.StatusCreated, created)
}

// DiscoverPosts handles GET /posts: unexpired posts matching the optional
// kind/scope filters, optionally restricted to a radius around a point,
// newest first, capped at 20.
func (h *PostHandler) DiscoverPosts(c *gin.Context) {
	userID := c.GetInt64("userID")
	now := h.now()

	filter := repositories.PostFilter{
		Kind:  models.PostKind(c.Query("kind")),
		Scope: models.VisibilityScope(c.Query("visibility_scope")),
	}
	if filter.Kind != "" && !models.ValidKind(filter.Kind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post kind"})
		return
	}
	if filter.Scope != "" && !models.ValidScope(filter.Scope) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid visibility scope"})
		return
	}

	var posts []models.Post
	if c.Query("longitude") != "" || c.Query("latitude") != "" {
		point, radius, err := parseNearQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		candidates := h.geoIndex.Within(point, radius)
		// fetch every unexpired candidate unfiltered so that stale index
		// entries can be told apart from filtered-out posts
		nearby, err := h.postRepo.ListActiveByIDs(c.Request.Context(), candidates, repositories.PostFilter{}, now, len(candidates))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load posts"})
			return
		}
		h.pruneStale(candidates, nearby)

		for _, post := range nearby {
			if filter.Kind != "" && post.Kind != filter.Kind {
				continue
			}
			if filter.Scope != "" && post.VisibilityScope != filter.Scope {
				continue
			}
			posts = append(posts, post)
		}
	} else {
		var err error
		posts, err = h.postRepo.ListActive(c.Request.Context(), filter, now, discoverLimit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load posts"})
			return
		}
	}

	visible := make([]models.Post, 0, len(posts))
	for _, post := range posts {
		if len(visible) == discoverLimit {
			break
		}
		ok, err := h.visibleTo(c, userID, post)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to check connection graph"})
			return
		}
		if ok {
			visible = append(visible, post)
		}
	}

	c.JSON(http.StatusOK, gin.H{"posts": visible})
}

// visibleTo applies the post's connection-scope gate to the viewer.
func (h *PostHandler) visibleTo(c *gin.Context, viewerID int64, post models.Post) (bool, error) {
	if post.AuthorID == viewerID {
		return true, nil
	}
	degree, err := h.connections.DegreeBetween(c.Request.Context(), viewerID, post.AuthorID)
	if err != nil {
		return false, err
	}
	return degree.WithinScope(graph.Degree(post.VisibilityScope)), nil
}

// pruneStale drops index entries whose posts expired or vanished since
// insertion. Index removal on expiry is lazy; discovery is the only reader.
func (h *PostHandler) pruneStale(candidates []int64, found []models.Post) {
	if len(found) == len(candidates) {
		return
	}
	alive := make(map[int64]struct{}, len(found))
	for _, post := range found {
		alive[post.ID] = struct{}{}
	}
	for _, id := range candidates {
		if _, ok := alive[id]; !ok {
			h.geoIndex.Remove(id)
		}
	}
}

func parseNearQuery(c *gin.Context) (geo.Point, float64, error) {
	lon, err := strconv.ParseFloat(c.Query("longitude"), 64)
	if err != nil {
		return geo.Point{}, 0, fmt.Errorf("invalid longitude")
	}
	lat, err := strconv.ParseFloat(c.Query("latitude"), 64)
	if err != nil {
		return geo.Point{}, 0, fmt.Errorf("invalid latitude")
	}

	point := geo.Point{Longitude: lon, Latitude: lat}
	if err := geo.ValidatePoint(point); err != nil {
		return geo.Point{}, 0, err
	}

	radius := float64(defaultRadiusMeters)
	if raw := c.Query("radius_meters"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil || radius <= 0 {
			return geo.Point{}, 0, fmt.Errorf("invalid radius")
		}
	}
	return point, radius, nil
}

// GetPost handles GET /posts/:post_id, returning the post with its replies.
func (h *PostHandler) GetPost(c *gin.Context) {
	postID, err := strconv.ParseInt(c.Param("post_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	post, err := h.postRepo.GetPost(c.Request.Context(), postID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": messageForError(err)})
		return
	}
	c.JSON(http.StatusOK, post)
}

// SubmitReply handles POST /posts/:post_id/replies.
func (h *PostHandler) SubmitReply(c *gin.Context) {
	postID, err := strconv.ParseInt(c.Param("post_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	userID := c.GetInt64("userID")
	if err := h.postRepo.SubmitReply(c.Request.Context(), postID, userID, h.now()); err != nil {
		if errors.Is(err, repositories.ErrReplyQuotaExceeded) {
			observability.IncQuotaRejection("replies")
		}
		c.JSON(statusForError(err), gin.H{"error": messageForError(err)})
		return
	}

	observability.IncReplySubmitted()
	h.audit.Emit(c.Request.Context(), "INFO",
		fmt.Sprintf("reply submitted post=%d", postID),
		requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusOK, gin.H{"message": "reply sent"})
}

// ResolveReply handles PATCH /posts/:post_id/replies/:user_id. Accepting a
// reply also ensures a direct chat exists between the parties.
func (h *PostHandler) ResolveReply(c *gin.Context) {
	postID, err := strconv.ParseInt(c.Param("post_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}
	targetUserID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req struct {
		Status models.ReplyStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status != models.ReplyAccepted && req.Status != models.ReplyRejected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be accepted or rejected"})
		return
	}

	authorID := c.GetInt64("userID")
	if err := h.postRepo.ResolveReply(c.Request.Context(), postID, authorID, targetUserID, req.Status); err != nil {
		if errors.Is(err, repositories.ErrAcceptQuotaExceeded) {
			observability.IncQuotaRejection("accepts")
		}
		c.JSON(statusForError(err), gin.H{"error": messageForError(err)})
		return
	}

	resp := gin.H{"message": fmt.Sprintf("reply %s", req.Status)}
	if req.Status == models.ReplyAccepted {
		// Conversation creation is eventually consistent with the accept:
		// a failure here leaves the acceptance in place and the idempotent
		// coordinator can be retried.
		chat, err := h.coordinator.EnsureConversation(c.Request.Context(), postID, authorID, targetUserID, requestIDFromContext(c))
		if err != nil {
			h.audit.Emit(c.Request.Context(), "ERROR",
				fmt.Sprintf("match conversation failed post=%d", postID),
				requestIDFromContext(c), userIDFromContext(c))
		} else {
			resp["chat_id"] = chat.ID
		}
	}

	c.JSON(http.StatusOK, resp)
}
