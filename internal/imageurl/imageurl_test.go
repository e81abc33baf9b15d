package imageurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	r := New("https://api.damara.example/", []string{"3.38.145.117", "ec2-", " "})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", Placeholder},
		{"blank", "   ", Placeholder},
		{"legacy ip", "http://3.38.145.117:3000/uploads/images/a.png", "https://api.damara.example/uploads/images/a.png"},
		{"legacy ec2 host", "https://ec2-3-38-145-117.ap-northeast-2.compute.amazonaws.com/uploads/images/b.jpg", "https://api.damara.example/uploads/images/b.jpg"},
		{"http upgraded", "http://cdn.example.com/x.png", "https://cdn.example.com/x.png"},
		{"https unchanged", "https://cdn.example.com/x.png?w=200", "https://cdn.example.com/x.png?w=200"},
		{"uploads path", "/uploads/images/c.png", "https://api.damara.example/uploads/images/c.png"},
		{"other uploads dir", "/uploads/avatars/d.png", "https://api.damara.example/uploads/avatars/d.png"},
		{"rooted filename", "/e.png", "https://api.damara.example/uploads/images/e.png"},
		{"bare filename", "f.webp", "https://api.damara.example/uploads/images/f.webp"},
		{"bare uuid", "0b6f1c3e-3f9a-4a8e-9a55-6f1d2f8c9b10", "https://api.damara.example/uploads/images/0b6f1c3e-3f9a-4a8e-9a55-6f1d2f8c9b10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.in))
		})
	}
}

func TestResolve_NoBase(t *testing.T) {
	r := New("", nil)
	assert.Equal(t, "/uploads/images/a.png", r.Resolve("a.png"))
	assert.Equal(t, "https://3.38.145.117/uploads/images/a.png", r.Resolve("http://3.38.145.117/uploads/images/a.png"))
}

func TestResolveAll(t *testing.T) {
	r := New("", nil)
	assert.Equal(t, []string{Placeholder, "/uploads/images/a.png"}, r.ResolveAll([]string{"", "a.png"}))
}
