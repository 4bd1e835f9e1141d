package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPostStatusAt(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		isPublished bool
		publishDate time.Time
		want        PostStatus
	}{
		{
			name:        "unpublished is draft regardless of date",
			isPublished: false,
			publishDate: now.Add(-24 * time.Hour),
			want:        StatusDraft,
		},
		{
			name:        "unpublished with future date is still draft",
			isPublished: false,
			publishDate: now.Add(24 * time.Hour),
			want:        StatusDraft,
		},
		{
			name:        "published with past date",
			isPublished: true,
			publishDate: now.Add(-time.Minute),
			want:        StatusPublished,
		},
		{
			name:        "published with future date is scheduled",
			isPublished: true,
			publishDate: now.Add(time.Minute),
			want:        StatusScheduled,
		},
		{
			name:        "publish date equal to now counts as published",
			isPublished: true,
			publishDate: now,
			want:        StatusPublished,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Post{IsPublished: tt.isPublished, PublishDate: tt.publishDate}
			assert.Equal(t, tt.want, p.StatusAt(now))
		})
	}
}

func TestPostHasTag(t *testing.T) {
	p := &Post{Tags: []string{"nutrition", "mindfulness"}}

	assert.True(t, p.HasTag("nutrition"))
	assert.False(t, p.HasTag("sleep"))
	assert.False(t, (&Post{}).HasTag("anything"))
}
