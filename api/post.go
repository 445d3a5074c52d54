package api

import (
	"time"

	"github.com/dfryer1193/blogapi/blog/domain"
)

type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	HTML      string    `json:"html"`
	Snippet   string    `json:"snippet"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PostSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Snippet   string    `json:"snippet"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostUpdate is the request body of PUT and POST /posts/:id.
type PostUpdate struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type ListPostsQuery struct {
	Page *int `form:"page" binding:"omitempty,min=0"`
}

func NewPost(p *domain.Post) Post {
	return Post{
		ID:        p.ID,
		Title:     p.Title,
		Body:      p.Body,
		HTML:      p.HTML,
		Snippet:   p.Snippet,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func NewPostSummaries(summaries []domain.PostSummary) []PostSummary {
	out := make([]PostSummary, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, PostSummary{
			ID:        s.ID,
			Title:     s.Title,
			Snippet:   s.Snippet,
			UpdatedAt: s.UpdatedAt,
		})
	}
	return out
}

func NewSuccessResponse(r domain.SuccessResponse) SuccessResponse {
	return SuccessResponse{Success: r.Success}
}

func (u PostUpdate) ToDomain() domain.PostUpdate {
	return domain.PostUpdate{
		Title: u.Title,
		Body:  u.Body,
	}
}
