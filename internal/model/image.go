package model

import (
	"time"
)

// ImageStatus is stored as text referencing gallery_image_statuses, so new
// states are added with a row insert rather than a column change.
type ImageStatus string

const (
	ImageStatusActive ImageStatus = "active"
	ImageStatusHidden ImageStatus = "hidden"
)

func (s ImageStatus) Valid() bool {
	switch s {
	case ImageStatusActive, ImageStatusHidden:
		return true
	}
	return false
}

// CategoryAll is the read-side sentinel for "no category filter".
const CategoryAll = "All"

type Image struct {
	ID        int64       `db:"id" json:"id" yaml:"id"`
	Filename  string      `db:"filename" json:"filename" yaml:"filename"`
	Caption   string      `db:"caption" json:"caption" yaml:"caption"`
	Category  string      `db:"category" json:"category" yaml:"category"`
	Featured  bool        `db:"featured" json:"featured" yaml:"featured"`
	Status    ImageStatus `db:"status" json:"status" yaml:"status"`
	Position  int         `db:"position" json:"position" yaml:"position"`
	CreatedAt time.Time   `db:"created_at" json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at" yaml:"updated_at"`
}

func (i *Image) IsActive() bool {
	return i.Status == ImageStatusActive
}

// ImageMetadata carries a partial metadata edit. Nil fields are left as they are.
type ImageMetadata struct {
	Caption  *string `json:"caption"`
	Category *string `json:"category"`
	Featured *bool   `json:"featured"`
}

func (m ImageMetadata) Empty() bool {
	return m.Caption == nil && m.Category == nil && m.Featured == nil
}

// ImageFilter narrows public listings. Status is always active for public reads.
type ImageFilter struct {
	Category string
}

// Reorder positions are bounded well inside a 32-bit INTEGER column so that
// Create can still append at MAX(position)+1 after any accepted batch.
const (
	MinPosition = -1_000_000_000
	MaxPosition = 1_000_000_000
)

// PositionUpdate is one element of a reorder batch.
type PositionUpdate struct {
	ID       int64 `json:"id"`
	Position int   `json:"position"`
}
