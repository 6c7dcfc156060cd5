//go:build integration_test || all_tests

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/miniblog/internal/posts"
)

func (s *IntegrationTestSuite) listPostsRequest(ctx context.Context) []*posts.Post {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", serverEndpoint+"/posts",
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var allPosts []*posts.Post
	require.NoError(s.T(),
		json.NewDecoder(resp.Body).Decode(&allPosts),
	)

	return allPosts
}

func (s *IntegrationTestSuite) newPostRequest(
	ctx context.Context,
	body []byte,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		"POST", serverEndpoint+"/posts",
		bytes.NewReader(body),
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	return s.httpClient.Do(req)
}

func (s *IntegrationTestSuite) postsRowCount() int {
	var count int
	require.NoError(s.T(),
		s.DB.QueryRow("SELECT COUNT(*) FROM blog_post").Scan(&count),
	)
	return count
}

func (s *IntegrationTestSuite) TestPosts() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.T().Run("list posts, empty store", func(t *testing.T) {
		allPosts := s.listPostsRequest(ctx)
		assert.Empty(t, allPosts)
	})

	var firstPost posts.Post
	s.T().Run("add first post", func(t *testing.T) {
		postJson, err := json.Marshal(map[string]string{
			"title":   "My First Blog Post",
			"content": "This is the content...",
		})
		require.NoError(t, err)

		resp, err := s.newPostRequest(ctx, postJson)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "/posts", resp.Header.Get("Location"))

		require.NoError(t, json.NewDecoder(resp.Body).Decode(&firstPost))
		assert.Equal(t, 1, firstPost.ID)
		assert.Equal(t, "My First Blog Post", firstPost.Title)
		assert.Equal(t, "This is the content...", firstPost.Content)
		assert.WithinDuration(t, time.Now(), firstPost.CreatedAt, 5*time.Second)
	})

	s.T().Run("list posts, first post present", func(t *testing.T) {
		allPosts := s.listPostsRequest(ctx)
		require.Len(t, allPosts, 1)
		assert.Equal(t, firstPost.ID, allPosts[0].ID)
		assert.Equal(t, firstPost.Title, allPosts[0].Title)
		assert.Equal(t, firstPost.Content, allPosts[0].Content)
		assert.True(t, firstPost.CreatedAt.Equal(allPosts[0].CreatedAt))
	})

	s.T().Run("add post with explicit createdAt", func(t *testing.T) {
		createdAt := time.Date(2024, 7, 20, 15, 0, 0, 0, time.UTC)
		postJson, err := json.Marshal(map[string]any{
			"title":     "an older post",
			"content":   "imported content",
			"createdAt": createdAt,
		})
		require.NoError(t, err)

		resp, err := s.newPostRequest(ctx, postJson)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var createdPost posts.Post
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&createdPost))
		assert.Equal(t, 2, createdPost.ID)
		assert.True(t, createdAt.Equal(createdPost.CreatedAt))
	})

	s.T().Run("constraint violations rejected", func(t *testing.T) {
		for caseName, post := range map[string]map[string]string{
			"empty title": {
				"content": "content without title",
			},
			"empty content": {
				"title": "title without content",
			},
			"title too long": {
				"title":   strings.Repeat("x", 201),
				"content": "some content",
			},
		} {
			postJson, err := json.Marshal(post)
			require.NoError(t, err, caseName)

			resp, err := s.newPostRequest(ctx, postJson)
			require.NoError(t, err, caseName)
			resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, caseName)
		}

		// no rows persisted by the rejected inserts
		assert.Equal(t, 2, s.postsRowCount())
	})

	s.T().Run("malformed json rejected", func(t *testing.T) {
		resp, err := s.newPostRequest(ctx, []byte(`{"title": "broken`))
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, 2, s.postsRowCount())
	})

	s.T().Run("list posts, round trip", func(t *testing.T) {
		allPosts := s.listPostsRequest(ctx)
		require.Len(t, allPosts, 2)

		ids := make(map[int]bool, len(allPosts))
		for _, p := range allPosts {
			assert.False(t, ids[p.ID], "id %d reused", p.ID)
			ids[p.ID] = true
			assert.NotEmpty(t, p.Title)
			assert.NotEmpty(t, p.Content)
			assert.False(t, p.CreatedAt.IsZero())
		}
	})

	s.T().Run("metrics endpoint", func(t *testing.T) {
		req, err := http.NewRequestWithContext(ctx, "GET", metricsEndpoint, nil)
		require.NoError(t, err)

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		metricsOutput := string(body)

		// service series, after the posts traffic above
		assert.Contains(t, metricsOutput, "miniblog_main_posts_added")
		assert.Contains(t, metricsOutput, "miniblog_main_request_duration_seconds")
		// pool and process collectors on the same registry
		assert.Contains(t, metricsOutput, "pgxpool_")
		assert.Contains(t, metricsOutput, "go_goroutines")
	})

	s.T().Run("version endpoint", func(t *testing.T) {
		req, err := http.NewRequestWithContext(ctx, "GET", serverEndpoint+"/version", nil)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	fmt.Println("posts integration test done")
}
