package services

import (
	"foodgram-api/media"
)

const (
	DefaultPageSize = 6
	MaxPageSize     = 100
)

// ImageStore decodes, stores and removes recipe images.
type ImageStore interface {
	Decode(payload string) (*media.Image, error)
	Save(img *media.Image) (string, error)
	Remove(ref string) error
}

// AvatarStore decodes, stores and removes user avatars.
type AvatarStore interface {
	Decode(payload string) (*media.Image, error)
	SaveAvatar(img *media.Image) (string, error)
	Remove(ref string) error
}

var (
	_ ImageStore  = (*media.Store)(nil)
	_ AvatarStore = (*media.Store)(nil)
)

// NormalizePage applies the default page size and clamps limit and offset.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
