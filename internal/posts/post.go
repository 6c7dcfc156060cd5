package posts

import (
	"time"
)

// Post is a single blog post, mapped to one row of the blog_post table.
// CreatedAt is assigned by the store on insert when the client does not send it.
type Post struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
