package posts

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/2beens/miniblog/internal/middleware"
	"github.com/2beens/miniblog/internal/telemetry/metrics"
	"github.com/2beens/miniblog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type newPostRequest struct {
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"createdAt"`
}

type postsRepo interface {
	Insert(ctx context.Context, post *Post) error
	ListAll(ctx context.Context) ([]*Post, error)
}

var _ postsRepo = (*Repo)(nil)

type Handler struct {
	repo      postsRepo
	listCache *ListCache
	metrics   *metrics.Manager
}

func NewHandler(
	repo postsRepo,
	listCache *ListCache,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		repo:      repo,
		listCache: listCache,
		metrics:   metricsManager,
	}
}

func (handler *Handler) SetupRoutes(
	router *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	newPostAllowedPerMin int,
) {
	router.HandleFunc("/posts", handler.handleList).Methods("GET").Name("list-posts")
	router.Handle(
		"/posts",
		middleware.RateLimit(rateLimiter, "new-post", newPostAllowedPerMin, handler.metrics)(
			http.HandlerFunc(handler.handleNew),
		),
	).Methods("POST", "OPTIONS").Name("new-post")
}

func (handler *Handler) handleNew(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var newPostReq newPostRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&newPostReq); err != nil {
			log.Errorf("new post, unmarshal json params: %s", err)
			http.Error(w, "add post failed", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Errorf("add new post failed, parse form error: %s", err)
			http.Error(w, "parse form error", http.StatusInternalServerError)
			return
		}
		newPostReq = newPostRequest{
			Title:   r.Form.Get("title"),
			Content: r.Form.Get("content"),
		}
	}

	newPost := &Post{
		Title:   newPostReq.Title,
		Content: newPostReq.Content,
	}
	if newPostReq.CreatedAt != nil {
		newPost.CreatedAt = *newPostReq.CreatedAt
	}

	if err := handler.repo.Insert(r.Context(), newPost); err != nil {
		if pkg.IsConstraintViolation(err) {
			log.Tracef("add new post, constraint violation: %s", err)
			http.Error(w, "invalid post data", http.StatusBadRequest)
			return
		}
		log.Errorf("add new post failed: %s", err)
		http.Error(w, "add new post failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterPostsAdded.Inc()
	handler.listCache.Invalidate()

	log.Tracef("new post %d: [%s] added", newPost.ID, newPost.Title)

	newPostJson, err := json.Marshal(newPost)
	if err != nil {
		log.Errorf("marshal new post error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Location", "/posts")
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, newPostJson, http.StatusCreated)
}

func (handler *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if body, ok := handler.listCache.Get(); ok {
		pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, body)
		return
	}

	// snapshot before the store read, so a concurrent insert
	// invalidates whatever this request is about to cache
	generation := handler.listCache.Generation()

	allPosts, err := handler.repo.ListAll(r.Context())
	if err != nil {
		log.Errorf("list posts error: %s", err)
		http.Error(w, "list posts error", http.StatusInternalServerError)
		return
	}

	if len(allPosts) == 0 {
		allPosts = []*Post{}
	}

	allPostsJson, err := json.Marshal(allPosts)
	if err != nil {
		log.Errorf("marshal posts error: %s", err)
		http.Error(w, "marshal posts error", http.StatusInternalServerError)
		return
	}

	handler.listCache.Set(allPostsJson, generation)

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, allPostsJson)
}
