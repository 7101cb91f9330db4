// Package media stores one image per caller and resource kind: avatar,
// banner and profile picture.
package media

import (
	"companion-backend/internal/schema"
	"companion-backend/internal/shared/config"
)

const (
	// MaxImageBytes is the ceiling for user images.
	MaxImageBytes int64 = 5 << 20
	// MaxCompanionImageBytes is the ceiling for companion images.
	MaxCompanionImageBytes int64 = 10 << 20
)

// Binding says where the active object of a kind is recorded.
type Binding int

const (
	// BindKey stores the object key in Column of a per-user row keyed by user_id.
	BindKey Binding = iota
	// BindProfileURL stores the public URL on the caller's profile row.
	BindProfileURL
)

// Kind describes one stored-image resource.
type Kind struct {
	Name         string
	Label        string
	Bucket       string
	MaxBytes     int64
	Table        string
	Column       string
	Binding      Binding
	VerifyBucket bool
}

// Kinds holds every kind served by the handlers.
type Kinds struct {
	Avatar         Kind
	Banner         Kind
	ProfilePicture Kind
}

// KindsFromConfig resolves bucket names from cfg.
func KindsFromConfig(cfg config.Config) Kinds {
	return Kinds{
		Avatar: Kind{
			Name:     "avatar",
			Label:    "avatar",
			Bucket:   cfg.AvatarBucket(),
			MaxBytes: MaxImageBytes,
			Table:    schema.UserProfiles,
			Column:   "avatar_url",
			Binding:  BindProfileURL,
		},
		Banner: Kind{
			Name:         "banner",
			Label:        "banner",
			Bucket:       cfg.BannerBucket(),
			MaxBytes:     MaxImageBytes,
			Table:        schema.UserBanners,
			Column:       "banner_key",
			Binding:      BindKey,
			VerifyBucket: true,
		},
		ProfilePicture: Kind{
			Name:     "profile-picture",
			Label:    "profile picture",
			Bucket:   cfg.ProfilePictureBucket(),
			MaxBytes: MaxImageBytes,
			Table:    schema.UserProfilePics,
			Column:   "profile_pic_key",
			Binding:  BindKey,
		},
	}
}

// ownerColumn is the column that holds the caller id on the bound table.
func (k Kind) ownerColumn() string {
	if k.Binding == BindProfileURL {
		return "id"
	}
	return "user_id"
}
