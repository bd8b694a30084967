package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osa030/sleepmix/internal/domain/mix"
	"github.com/osa030/sleepmix/internal/domain/sound"
)

// TrackInput describes one sound of a new mix.
type TrackInput struct {
	SoundID string
	Volume  float64
}

// CreateMix stores a new mix owned by ownerID. Every sound must exist.
func (s *Store) CreateMix(ctx context.Context, ownerID, name string, tracks []TrackInput) (*mix.Mix, error) {
	if name == "" {
		return nil, errors.New("mix name is required")
	}

	row := Mix{ID: uuid.New().String(), UserID: ownerID, Name: name}
	sounds := make([]Sound, len(tracks))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, t := range tracks {
			if err := tx.First(&sounds[i], "id = ?", t.SoundID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errors.Wrapf(sound.ErrSoundNotFound, "sound %s", t.SoundID)
				}
				return err
			}
			row.Sounds = append(row.Sounds, MixSound{
				ID:          uuid.New().String(),
				SoundID:     t.SoundID,
				Position:    i,
				VolumeLevel: mix.ClampVolume(t.Volume),
			})
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create mix %s", name)
	}

	for i := range row.Sounds {
		row.Sounds[i].Sound = sounds[i]
	}

	s.log.Info().Msgf("store: mix created: mix_id=%s owner=%s tracks=%d", row.ID, ownerID, len(row.Sounds))
	return toDomainMix(row), nil
}

// UpdateMix renames a mix and replaces its sounds in one transaction.
// A sound kept from the previous version keeps its track ID.
func (s *Store) UpdateMix(ctx context.Context, mixID, name string, tracks []TrackInput) (*mix.Mix, error) {
	if name == "" {
		return nil, errors.New("mix name is required")
	}

	var row Mix
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Preload("Sounds", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
			First(&row, "id = ?", mixID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.Wrapf(mix.ErrMixNotFound, "mix %s", mixID)
		}
		if err != nil {
			return err
		}

		previous := make(map[string][]string, len(row.Sounds))
		for _, ms := range row.Sounds {
			previous[ms.SoundID] = append(previous[ms.SoundID], ms.ID)
		}

		sounds := make([]Sound, len(tracks))
		rows := make([]MixSound, len(tracks))
		for i, t := range tracks {
			if err := tx.First(&sounds[i], "id = ?", t.SoundID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errors.Wrapf(sound.ErrSoundNotFound, "sound %s", t.SoundID)
				}
				return err
			}
			id := uuid.New().String()
			if ids := previous[t.SoundID]; len(ids) > 0 {
				id, previous[t.SoundID] = ids[0], ids[1:]
			}
			rows[i] = MixSound{
				ID:          id,
				MixID:       mixID,
				SoundID:     t.SoundID,
				Position:    i,
				VolumeLevel: mix.ClampVolume(t.Volume),
			}
		}

		if err := tx.Where("mix_id = ?", mixID).Delete(&MixSound{}).Error; err != nil {
			return err
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		now := time.Now()
		if err := tx.Model(&Mix{}).Where("id = ?", mixID).
			Updates(map[string]any{"name": name, "updated_at": now}).Error; err != nil {
			return err
		}

		for i := range rows {
			rows[i].Sound = sounds[i]
		}
		row.Name = name
		row.UpdatedAt = now
		row.Sounds = rows
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to update mix %s", mixID)
	}

	s.log.Info().Msgf("store: mix updated: mix_id=%s name=%s tracks=%d", mixID, name, len(row.Sounds))
	return toDomainMix(row), nil
}

// ResolveMix reads a mix with all its tracks in one transaction.
func (s *Store) ResolveMix(ctx context.Context, mixID string) (*mix.Mix, error) {
	var row Mix
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.
			Preload("Sounds", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
			Preload("Sounds.Sound").
			First(&row, "id = ?", mixID).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(mix.ErrMixNotFound, "mix %s", mixID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve mix %s", mixID)
	}
	return toDomainMix(row), nil
}

// ListMixes returns the mixes of ownerID, most recently changed first.
// An empty ownerID lists every mix.
func (s *Store) ListMixes(ctx context.Context, ownerID string) ([]*mix.Mix, error) {
	q := s.db.WithContext(ctx).
		Preload("Sounds", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Sounds.Sound").
		Order("updated_at DESC")
	if ownerID != "" {
		q = q.Where("user_id = ?", ownerID)
	}

	var rows []Mix
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list mixes")
	}

	result := make([]*mix.Mix, 0, len(rows))
	for _, r := range rows {
		result = append(result, toDomainMix(r))
	}
	return result, nil
}

// UpdateTrackVolume stores a track's volume (clamped to [0,1]).
func (s *Store) UpdateTrackVolume(ctx context.Context, mixID, trackID string, volume float64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&MixSound{}).
			Where("id = ? AND mix_id = ?", trackID, mixID).
			Update("volume_level", mix.ClampVolume(volume))
		if res.Error != nil {
			return errors.Wrapf(res.Error, "failed to update volume of track %s", trackID)
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(mix.ErrTrackNotFound, "track %s of mix %s", trackID, mixID)
		}
		return touchMix(tx, mixID)
	})
}

// RemoveTrack deletes one track from a mix.
func (s *Store) RemoveTrack(ctx context.Context, mixID, trackID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND mix_id = ?", trackID, mixID).Delete(&MixSound{})
		if res.Error != nil {
			return errors.Wrapf(res.Error, "failed to remove track %s", trackID)
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(mix.ErrTrackNotFound, "track %s of mix %s", trackID, mixID)
		}
		return touchMix(tx, mixID)
	})
}

// DeleteMix deletes a mix and its tracks.
func (s *Store) DeleteMix(ctx context.Context, mixID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("mix_id = ?", mixID).Delete(&MixSound{}).Error; err != nil {
			return errors.Wrapf(err, "failed to delete tracks of mix %s", mixID)
		}
		res := tx.Where("id = ?", mixID).Delete(&Mix{})
		if res.Error != nil {
			return errors.Wrapf(res.Error, "failed to delete mix %s", mixID)
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(mix.ErrMixNotFound, "mix %s", mixID)
		}
		return nil
	})
}

func touchMix(tx *gorm.DB, mixID string) error {
	return tx.Model(&Mix{}).Where("id = ?", mixID).Update("updated_at", time.Now()).Error
}

func toDomainMix(r Mix) *mix.Mix {
	m := &mix.Mix{
		ID:        r.ID,
		Name:      r.Name,
		OwnerID:   r.UserID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Tracks:    make([]mix.Track, 0, len(r.Sounds)),
	}
	for _, ms := range r.Sounds {
		m.Tracks = append(m.Tracks, mix.Track{
			ID:           ms.ID,
			MixID:        r.ID,
			SoundID:      ms.SoundID,
			Name:         ms.Sound.Name,
			ResourceRef:  ms.Sound.FilePath,
			TargetVolume: ms.VolumeLevel,
		})
	}
	return m
}
