package store

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osa030/sleepmix/internal/domain/sound"
)

// EnsureUser returns the user with the given name, creating it if needed.
func (s *Store) EnsureUser(ctx context.Context, name string) (*User, error) {
	if name == "" {
		return nil, errors.New("user name is required")
	}

	var u User
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&u).Error
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "failed to look up user")
	}

	u = User{ID: uuid.New().String(), Name: name}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}
	return &u, nil
}

// SaveSound adds a sound to the catalog, or updates the entry with the same file path.
func (s *Store) SaveSound(ctx context.Context, snd sound.Sound) (*sound.Sound, error) {
	if snd.FilePath == "" {
		return nil, errors.New("sound file path is required")
	}
	if snd.Name == "" {
		snd.Name = sound.NameFromPath(snd.FilePath)
	}

	var row Sound
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("file_path = ?", snd.FilePath).First(&row).Error
		switch {
		case err == nil:
			row.Name = snd.Name
			if snd.Icon != "" {
				row.Icon = snd.Icon
			}
			return tx.Save(&row).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = Sound{ID: uuid.New().String(), Name: snd.Name, FilePath: snd.FilePath, Icon: snd.Icon}
			return tx.Create(&row).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to save sound %s", snd.FilePath)
	}
	return toDomainSound(row), nil
}

// ImportSounds registers every supported audio file under dir.
// File paths are stored relative to dir. Returns the number of sounds saved.
func (s *Store) ImportSounds(ctx context.Context, dir string) (int, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || sound.FormatOf(path) == sound.FormatNone {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return 0, errors.Wrapf(err, "failed to scan %s", dir)
	}

	count := 0
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if _, err := s.SaveSound(ctx, sound.Sound{FilePath: p}); err != nil {
			s.log.Warn().Msgf("store: sound import failed: path=%s err=%v", p, err)
			continue
		}
		count++
	}
	s.log.Info().Msgf("store: sounds imported: dir=%s found=%d saved=%d", dir, len(paths), count)
	return count, nil
}

// ListSounds returns the catalog ordered by name.
func (s *Store) ListSounds(ctx context.Context) ([]*sound.Sound, error) {
	var rows []Sound
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list sounds")
	}

	result := make([]*sound.Sound, 0, len(rows))
	for _, r := range rows {
		result = append(result, toDomainSound(r))
	}
	return result, nil
}

// GetSound returns one sound.
func (s *Store) GetSound(ctx context.Context, id string) (*sound.Sound, error) {
	var row Sound
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(sound.ErrSoundNotFound, "sound %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get sound %s", id)
	}
	return toDomainSound(row), nil
}

func toDomainSound(r Sound) *sound.Sound {
	return &sound.Sound{
		ID:       r.ID,
		Name:     r.Name,
		FilePath: r.FilePath,
		Icon:     r.Icon,
	}
}
