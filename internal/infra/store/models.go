package store

import "time"

// User owns mixes.
type User struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	Name      string `gorm:"type:varchar(128);uniqueIndex"`
	CreatedAt time.Time
}

// Sound is a catalog entry pointing at an audio file.
type Sound struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	Name      string `gorm:"type:varchar(128);index"`
	FilePath  string `gorm:"type:varchar(512);uniqueIndex"`
	Icon      string `gorm:"type:varchar(64)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Mix is a named set of sounds with per-sound volumes.
type Mix struct {
	ID        string     `gorm:"type:varchar(36);primaryKey"`
	UserID    string     `gorm:"type:varchar(36);index"`
	Name      string     `gorm:"type:varchar(128)"`
	Sounds    []MixSound `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MixSound links a sound into a mix. Its ID is the track ID used during playback.
type MixSound struct {
	ID          string `gorm:"type:varchar(36);primaryKey"`
	MixID       string `gorm:"type:varchar(36);index"`
	SoundID     string `gorm:"type:varchar(36);index"`
	Sound       Sound  `gorm:"foreignKey:SoundID"`
	Position    int
	VolumeLevel float64
}
