package groupbuy

import (
	"strings"

	"damara/internal/models"
)

// FilterPosts returns the posts matching query and category, in order.
// The query matches case-insensitively against title, content and pickup
// location; an empty query matches everything. Category "all" (or empty)
// matches every post. Any other category must be filterable and match
// exactly, so an unknown filter value matches nothing.
func FilterPosts(posts []models.Post, query string, category models.Category) []models.Post {
	q := strings.ToLower(query)
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if matchesQuery(p, q) && matchesCategory(p, category) {
			out = append(out, p)
		}
	}
	return out
}

func matchesQuery(p models.Post, q string) bool {
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Content), q) ||
		strings.Contains(strings.ToLower(p.PickupLocation), q)
}

func matchesCategory(p models.Post, c models.Category) bool {
	if c == "" || c == models.CategoryAll {
		return true
	}
	return c.Filterable() && p.Category == c
}
