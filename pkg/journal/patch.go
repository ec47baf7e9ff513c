package journal

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Optional is a value that is either present or absent. The zero value is absent.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether the value is present.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// MarshalJSON encodes an absent value as null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON marks the value present whenever its key appears, even as null.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	var v T
	if !bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
	}
	o.value = v
	o.set = true
	return nil
}

// Patch is a partial update. Present fields replace the stored value
// wholesale; absent fields keep it. There is no way to express a change to
// the id or the creation time, and JSON keys for them are ignored.
type Patch struct {
	Content         Optional[string]           `json:"content"`
	Tags            Optional[[]string]         `json:"tags"`
	Category        Optional[Category]         `json:"category"`
	Images          Optional[[]string]         `json:"images"`
	AIConversations Optional[[]AIConversation] `json:"ai_conversations"`
	EmotionAnalysis Optional[*EmotionAnalysis] `json:"emotion_analysis"`
}

// IsEmpty reports whether no field is present.
func (p Patch) IsEmpty() bool {
	return !p.Content.IsSet() &&
		!p.Tags.IsSet() &&
		!p.Category.IsSet() &&
		!p.Images.IsSet() &&
		!p.AIConversations.IsSet() &&
		!p.EmotionAnalysis.IsSet()
}

// apply returns e with the present fields of p replaced. id, CreatedAt and
// UpdatedAt are left to the caller.
func (p Patch) apply(e Entry) Entry {
	if v, ok := p.Content.Get(); ok {
		e.Content = v
	}
	if v, ok := p.Tags.Get(); ok {
		e.Tags = slices.Clone(v)
	}
	if v, ok := p.Category.Get(); ok {
		e.Category = v
	}
	if v, ok := p.Images.Get(); ok {
		e.Images = slices.Clone(v)
	}
	if v, ok := p.AIConversations.Get(); ok {
		e.AIConversations = slices.Clone(v)
	}
	if v, ok := p.EmotionAnalysis.Get(); ok {
		if v == nil {
			e.EmotionAnalysis = nil
		} else {
			ea := *v
			e.EmotionAnalysis = &ea
		}
	}
	return e
}
