package posts

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ postsRepo = (*repoMock)(nil)

// repoMock mimics the store behavior, including the schema constraint
// errors the real table produces.
type repoMock struct {
	Posts  map[int]*Post
	nextID int
	mutex  sync.Mutex
}

func newRepoMock() *repoMock {
	return &repoMock{
		Posts:  make(map[int]*Post),
		nextID: 1,
	}
}

func (r *repoMock) PostsCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.Posts)
}

func (r *repoMock) Insert(_ context.Context, post *Post) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if post.Title == "" || post.Content == "" {
		return &pgconn.PgError{Code: "23514"} // check_violation
	}
	if len(post.Title) > 200 {
		return &pgconn.PgError{Code: "22001"} // string_data_right_truncation
	}

	post.ID = r.nextID
	r.nextID++

	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}

	r.Posts[post.ID] = post
	return nil
}

func (r *repoMock) ListAll(_ context.Context) ([]*Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var allPosts []*Post
	for id := range r.Posts {
		allPosts = append(allPosts, r.Posts[id])
	}
	return allPosts, nil
}
