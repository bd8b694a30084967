package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/sleepmix/internal/domain/mix"
	"github.com/osa030/sleepmix/internal/domain/sound"
	"github.com/osa030/sleepmix/internal/infra/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(config.StoreConfig{
		Driver:       "sqlite",
		DSN:          ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedSounds(t *testing.T, s *Store, paths ...string) []*sound.Sound {
	t.Helper()
	result := make([]*sound.Sound, 0, len(paths))
	for _, p := range paths {
		snd, err := s.SaveSound(context.Background(), sound.Sound{FilePath: p})
		require.NoError(t, err)
		result = append(result, snd)
	}
	return result
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(config.StoreConfig{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}

func TestStore_EnsureUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.EnsureUser(ctx, "alice")
	require.NoError(t, err)
	again, err := s.EnsureUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	_, err = s.EnsureUser(ctx, "")
	assert.Error(t, err)
}

func TestStore_Sounds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sounds := seedSounds(t, s, "heavy_rain.mp3", "wind.wav")
	assert.Equal(t, "Heavy Rain", sounds[0].Name)

	// Same path updates the existing entry
	updated, err := s.SaveSound(ctx, sound.Sound{FilePath: "wind.wav", Name: "Night Wind", Icon: "wind"})
	require.NoError(t, err)
	assert.Equal(t, sounds[1].ID, updated.ID)

	list, err := s.ListSounds(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Heavy Rain", list[0].Name)
	assert.Equal(t, "Night Wind", list[1].Name)
	assert.Equal(t, "wind", list[1].Icon)

	got, err := s.GetSound(ctx, sounds[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "heavy_rain.mp3", got.FilePath)

	_, err = s.GetSound(ctx, "nope")
	assert.True(t, errors.Is(err, sound.ErrSoundNotFound))

	_, err = s.SaveSound(ctx, sound.Sound{Name: "no path"})
	assert.Error(t, err)
}

func TestStore_ImportSounds(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nature"), 0o755))
	for _, name := range []string{"rain.mp3", "nature/birds.ogg", "readme.txt", "nature/fire.flac"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	n, err := s.ImportSounds(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Importing again does not duplicate entries
	n, err = s.ImportSounds(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	list, err := s.ListSounds(context.Background())
	require.NoError(t, err)
	paths := make([]string, 0, len(list))
	for _, snd := range list {
		paths = append(paths, snd.FilePath)
	}
	assert.ElementsMatch(t, []string{"rain.mp3", "nature/birds.ogg", "nature/fire.flac"}, paths)

	_, err = s.ImportSounds(context.Background(), filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestStore_MixLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sounds := seedSounds(t, s, "rain.mp3", "wind.wav", "fire.ogg")
	owner, err := s.EnsureUser(ctx, "alice")
	require.NoError(t, err)

	created, err := s.CreateMix(ctx, owner.ID, "Night", []TrackInput{
		{SoundID: sounds[0].ID, Volume: 0.8},
		{SoundID: sounds[1].ID, Volume: 1.5},
		{SoundID: sounds[2].ID, Volume: 0.3},
	})
	require.NoError(t, err)
	require.Len(t, created.Tracks, 3)
	assert.Equal(t, 1.0, created.Tracks[1].TargetVolume, "volume is clamped")

	resolved, err := s.ResolveMix(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Night", resolved.Name)
	assert.Equal(t, owner.ID, resolved.OwnerID)
	require.Len(t, resolved.Tracks, 3)
	assert.Equal(t, []string{"rain.mp3", "wind.wav", "fire.ogg"}, []string{
		resolved.Tracks[0].ResourceRef, resolved.Tracks[1].ResourceRef, resolved.Tracks[2].ResourceRef,
	})
	assert.Equal(t, "Rain", resolved.Tracks[0].Name)
	assert.Equal(t, created.TrackIDs(), resolved.TrackIDs())

	trackID := resolved.Tracks[1].ID
	require.NoError(t, s.UpdateTrackVolume(ctx, created.ID, trackID, 0.25))
	resolved, err = s.ResolveMix(ctx, created.ID)
	require.NoError(t, err)
	trk, ok := resolved.Track(trackID)
	require.True(t, ok)
	assert.Equal(t, 0.25, trk.TargetVolume)

	err = s.UpdateTrackVolume(ctx, created.ID, "nope", 0.5)
	assert.True(t, errors.Is(err, mix.ErrTrackNotFound))

	require.NoError(t, s.RemoveTrack(ctx, created.ID, trackID))
	resolved, err = s.ResolveMix(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, resolved.Tracks, 2)
	err = s.RemoveTrack(ctx, created.ID, trackID)
	assert.True(t, errors.Is(err, mix.ErrTrackNotFound))

	require.NoError(t, s.DeleteMix(ctx, created.ID))
	_, err = s.ResolveMix(ctx, created.ID)
	assert.True(t, errors.Is(err, mix.ErrMixNotFound))
	assert.True(t, errors.Is(s.DeleteMix(ctx, created.ID), mix.ErrMixNotFound))

	var orphans int64
	require.NoError(t, s.db.Model(&MixSound{}).Where("mix_id = ?", created.ID).Count(&orphans).Error)
	assert.Zero(t, orphans)
}

func TestStore_UpdateMix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sounds := seedSounds(t, s, "rain.mp3", "wind.wav", "fire.ogg")
	owner, err := s.EnsureUser(ctx, "alice")
	require.NoError(t, err)

	created, err := s.CreateMix(ctx, owner.ID, "Night", []TrackInput{
		{SoundID: sounds[0].ID, Volume: 0.8},
		{SoundID: sounds[1].ID, Volume: 0.5},
	})
	require.NoError(t, err)

	updated, err := s.UpdateMix(ctx, created.ID, "Stormy Night", []TrackInput{
		{SoundID: sounds[2].ID, Volume: 0.4},
		{SoundID: sounds[0].ID, Volume: 1.3},
	})
	require.NoError(t, err)
	assert.Equal(t, "Stormy Night", updated.Name)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
	require.Len(t, updated.Tracks, 2)
	assert.Equal(t, created.Tracks[0].ID, updated.Tracks[1].ID, "kept sound keeps its track ID")
	assert.NotEqual(t, created.Tracks[1].ID, updated.Tracks[0].ID)
	assert.Equal(t, "Fire", updated.Tracks[0].Name)
	assert.Equal(t, 1.0, updated.Tracks[1].TargetVolume, "volume is clamped")

	resolved, err := s.ResolveMix(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stormy Night", resolved.Name)
	assert.Equal(t, owner.ID, resolved.OwnerID)
	assert.Equal(t, updated.TrackIDs(), resolved.TrackIDs())
	assert.Equal(t, []string{"fire.ogg", "rain.mp3"}, []string{resolved.Tracks[0].ResourceRef, resolved.Tracks[1].ResourceRef})
	assert.Equal(t, []float64{0.4, 1}, []float64{resolved.Tracks[0].TargetVolume, resolved.Tracks[1].TargetVolume})
	for _, trk := range resolved.Tracks {
		assert.Equal(t, created.ID, trk.MixID)
	}

	var count int64
	require.NoError(t, s.db.Model(&MixSound{}).Where("mix_id = ?", created.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count, "previous tracks are replaced")
}

func TestStore_UpdateMixErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sounds := seedSounds(t, s, "rain.mp3")
	created, err := s.CreateMix(ctx, "", "Night", []TrackInput{{SoundID: sounds[0].ID, Volume: 0.8}})
	require.NoError(t, err)

	_, err = s.UpdateMix(ctx, "missing", "Night", []TrackInput{{SoundID: sounds[0].ID, Volume: 1}})
	assert.True(t, errors.Is(err, mix.ErrMixNotFound))

	_, err = s.UpdateMix(ctx, created.ID, "", nil)
	assert.Error(t, err)

	_, err = s.UpdateMix(ctx, created.ID, "Renamed", []TrackInput{{SoundID: "missing", Volume: 1}})
	assert.True(t, errors.Is(err, sound.ErrSoundNotFound))

	// A failed update leaves the mix untouched
	resolved, err := s.ResolveMix(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Night", resolved.Name)
	assert.Equal(t, created.TrackIDs(), resolved.TrackIDs())
}

func TestStore_CreateMixErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateMix(ctx, "", "", nil)
	assert.Error(t, err)

	_, err = s.CreateMix(ctx, "", "Ghost", []TrackInput{{SoundID: "missing", Volume: 1}})
	assert.True(t, errors.Is(err, sound.ErrSoundNotFound))

	mixes, err := s.ListMixes(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, mixes, "failed creation leaves nothing behind")
}

func TestStore_ListMixes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sounds := seedSounds(t, s, "rain.mp3")
	alice, err := s.EnsureUser(ctx, "alice")
	require.NoError(t, err)
	bob, err := s.EnsureUser(ctx, "bob")
	require.NoError(t, err)

	_, err = s.CreateMix(ctx, alice.ID, "A1", []TrackInput{{SoundID: sounds[0].ID, Volume: 0.5}})
	require.NoError(t, err)
	_, err = s.CreateMix(ctx, bob.ID, "B1", nil)
	require.NoError(t, err)

	mine, err := s.ListMixes(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "A1", mine[0].Name)
	assert.Len(t, mine[0].Tracks, 1)

	all, err := s.ListMixes(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_ResolveMixNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ResolveMix(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, mix.ErrMixNotFound))
}
