package journal

import (
	"fmt"
	"slices"
	"time"
)

// Category is one of the four fixed entry categories.
type Category string

const (
	CategoryWork    Category = "仕事"
	CategoryPrivate Category = "プライベート"
	CategoryStudy   Category = "学習"
	CategoryOther   Category = "その他"
)

var categories = []Category{CategoryWork, CategoryPrivate, CategoryStudy, CategoryOther}

// Categories returns the recognized categories in display order.
func Categories() []Category {
	return slices.Clone(categories)
}

// Valid reports whether c is a recognized category.
func (c Category) Valid() bool {
	return slices.Contains(categories, c)
}

// ParseCategory converts s to a Category, rejecting anything outside the enumeration.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// AIConversation is one turn of a chat attached to an entry.
type AIConversation struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Role      Role      `json:"role"`
	Message   string    `json:"message"`
}

// Emotions holds per-emotion scores, each 0-100.
type Emotions struct {
	Joy      float64 `json:"joy"`
	Sadness  float64 `json:"sadness"`
	Anger    float64 `json:"anger"`
	Fear     float64 `json:"fear"`
	Surprise float64 `json:"surprise"`
}

// EmotionAnalysis is the derived annotation produced by an external analysis step.
type EmotionAnalysis struct {
	Positive   float64   `json:"positive"`
	Negative   float64   `json:"negative"`
	Emotions   Emotions  `json:"emotions"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// Entry is a single journal record.
type Entry struct {
	ID              string           `json:"id"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	Content         string           `json:"content"`
	Tags            []string         `json:"tags"`
	Category        Category         `json:"category"`
	Images          []string         `json:"images"`
	AIConversations []AIConversation `json:"ai_conversations"`
	EmotionAnalysis *EmotionAnalysis `json:"emotion_analysis,omitempty"`
}

// HasTag reports whether tag is in the entry's tag set.
func (e Entry) HasTag(tag string) bool {
	return slices.Contains(e.Tags, tag)
}

// Draft is the caller-supplied part of a new entry. The store assigns the id
// and both timestamps.
type Draft struct {
	Content         string           `json:"content"`
	Tags            []string         `json:"tags"`
	Category        Category         `json:"category"`
	Images          []string         `json:"images"`
	AIConversations []AIConversation `json:"ai_conversations"`
	EmotionAnalysis *EmotionAnalysis `json:"emotion_analysis,omitempty"`
}
