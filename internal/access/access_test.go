package access_test

import (
	"testing"

	"github.com/drupchen/dupr-server/internal/access"
	"github.com/stretchr/testify/assert"
)

func TestCanView(t *testing.T) {
	tests := []struct {
		name    string
		viewer  access.Viewer
		content access.Content
		want    bool
	}{
		{
			name:    "public content, anonymous viewer",
			viewer:  access.Viewer{},
			content: access.Content{},
			want:    true,
		},
		{
			name:    "public content, authenticated viewer without categories",
			viewer:  access.Viewer{Authenticated: true},
			content: access.Content{},
			want:    true,
		},
		{
			name:    "gated content, anonymous viewer",
			viewer:  access.Viewer{},
			content: access.Content{Categories: []string{"ngondro"}},
			want:    false,
		},
		{
			name:    "gated content, anonymous viewer with matching categories still denied",
			viewer:  access.Viewer{Categories: []string{"ngondro"}},
			content: access.Content{Categories: []string{"ngondro"}},
			want:    false,
		},
		{
			name:    "gated content, elevated viewer with no categories",
			viewer:  access.Viewer{Authenticated: true, Elevated: true},
			content: access.Content{Categories: []string{"ngondro"}},
			want:    true,
		},
		{
			name:    "gated content, matching category",
			viewer:  access.Viewer{Authenticated: true, Categories: []string{"ngondro", "students"}},
			content: access.Content{Categories: []string{"ngondro"}},
			want:    true,
		},
		{
			name:    "gated content, no overlap",
			viewer:  access.Viewer{Authenticated: true, Categories: []string{"students"}},
			content: access.Content{Categories: []string{"ngondro", "retreat-2024"}},
			want:    false,
		},
		{
			name:    "gated content, viewer with empty category set",
			viewer:  access.Viewer{Authenticated: true},
			content: access.Content{Categories: []string{"ngondro"}},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, access.CanView(tt.viewer, tt.content))
		})
	}
}

func TestCanViewPublicIgnoresViewerState(t *testing.T) {
	// Every viewer shape sees content with an empty category set
	viewers := []access.Viewer{
		{},
		{Authenticated: true},
		{Authenticated: true, Elevated: true},
		{Authenticated: true, Categories: []string{"a", "b"}},
		{Categories: []string{"a"}},
	}

	for _, v := range viewers {
		assert.True(t, access.CanView(v, access.Content{}))
	}
}

func TestCanViewElevatedBypassesGating(t *testing.T) {
	elevated := access.Viewer{Authenticated: true, Elevated: true}

	contents := []access.Content{
		{Categories: []string{"ngondro"}},
		{Categories: []string{"x", "y", "z"}},
		{},
	}

	for _, c := range contents {
		assert.True(t, access.CanView(elevated, c))
	}
}
