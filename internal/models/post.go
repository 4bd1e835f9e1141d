// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// PostStatus is the presentation state of a post, derived on every read.
type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusScheduled PostStatus = "scheduled"
	StatusPublished PostStatus = "published"
)

// Post is a blog article with publication metadata and engagement counters.
// The ID is an opaque document identifier assigned by the repository on
// insert and never changed afterwards.
type Post struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	Title              string    `gorm:"not null" json:"title"`
	Excerpt            string    `json:"excerpt"`
	Content            string    `gorm:"type:text;not null" json:"content"`
	Category           string    `json:"category"`
	Tags               []string  `gorm:"serializer:json" json:"tags"`
	FeaturedImage      string    `json:"featuredImage,omitempty"`
	IsPublished        bool      `gorm:"index" json:"isPublished"`
	IsMandatoryReading bool      `json:"isMandatoryReading"`
	PublishDate        time.Time `json:"publishDate"`
	LastModified       time.Time `json:"lastModified"`
	ViewCount          int64     `json:"viewCount"`
	LikeCount          int64     `json:"likeCount"`
}

// StatusAt derives the post status at the given instant. A published post
// whose publish date equals now exactly counts as published, not scheduled.
func (p *Post) StatusAt(now time.Time) PostStatus {
	if !p.IsPublished {
		return StatusDraft
	}
	if p.PublishDate.After(now) {
		return StatusScheduled
	}
	return StatusPublished
}

// Status derives the post status against the current wall clock.
func (p *Post) Status() PostStatus {
	return p.StatusAt(time.Now().UTC())
}

// HasTag reports whether the post carries the given tag.
func (p *Post) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
