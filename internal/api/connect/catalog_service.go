package connect

import (
	"context"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/osa030/sleepmix/internal/domain/mix"
	"github.com/osa030/sleepmix/internal/domain/sound"
	"github.com/osa030/sleepmix/internal/infra/config"
	"github.com/osa030/sleepmix/internal/infra/store"
)

// Catalog is the persistence used by CatalogService.
type Catalog interface {
	EnsureUser(ctx context.Context, name string) (*store.User, error)
	ListSounds(ctx context.Context) ([]*sound.Sound, error)
	ListMixes(ctx context.Context, ownerID string) ([]*mix.Mix, error)
	ResolveMix(ctx context.Context, mixID string) (*mix.Mix, error)
	CreateMix(ctx context.Context, ownerID, name string, tracks []store.TrackInput) (*mix.Mix, error)
	UpdateMix(ctx context.Context, mixID, name string, tracks []store.TrackInput) (*mix.Mix, error)
	DeleteMix(ctx context.Context, mixID string) error
	RemoveTrack(ctx context.Context, mixID, trackID string) error
}

// CatalogService implements the CatalogService RPC.
type CatalogService struct {
	catalog Catalog
	config  *config.Config
	rules   mix.Rules
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(catalog Catalog, cfg *config.Config) *CatalogService {
	return &CatalogService{
		catalog: catalog,
		config:  cfg,
		rules: mix.Rules{
			MaxNameLength: cfg.Catalog.MaxNameLength,
			MinSounds:     cfg.Catalog.MinSounds,
			MaxSounds:     cfg.Catalog.MaxSounds,
		},
	}
}

// NewCatalogServiceHandler builds the HTTP handler serving every CatalogService procedure.
func NewCatalogServiceHandler(svc *CatalogService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(CatalogServiceListSoundsProcedure, connect.NewUnaryHandler(CatalogServiceListSoundsProcedure, svc.ListSounds, opts...))
	mux.Handle(CatalogServiceListMixesProcedure, connect.NewUnaryHandler(CatalogServiceListMixesProcedure, svc.ListMixes, opts...))
	mux.Handle(CatalogServiceGetMixProcedure, connect.NewUnaryHandler(CatalogServiceGetMixProcedure, svc.GetMix, opts...))
	mux.Handle(CatalogServiceCreateMixProcedure, connect.NewUnaryHandler(CatalogServiceCreateMixProcedure, svc.CreateMix, opts...))
	mux.Handle(CatalogServiceUpdateMixProcedure, connect.NewUnaryHandler(CatalogServiceUpdateMixProcedure, svc.UpdateMix, opts...))
	mux.Handle(CatalogServiceDeleteMixProcedure, connect.NewUnaryHandler(CatalogServiceDeleteMixProcedure, svc.DeleteMix, opts...))
	mux.Handle(CatalogServiceRemoveTrackProcedure, connect.NewUnaryHandler(CatalogServiceRemoveTrackProcedure, svc.RemoveTrack, opts...))
	return "/" + CatalogServiceName + "/", mux
}

// ListSounds lists the sound catalog.
func (s *CatalogService) ListSounds(
	ctx context.Context,
	req *connect.Request[ListSoundsRequest],
) (*connect.Response[ListSoundsResponse], error) {
	sounds, err := s.catalog.ListSounds(ctx)
	if err != nil {
		return nil, toConnectError(s.config, err)
	}

	resp := &ListSoundsResponse{Sounds: make([]Sound, len(sounds))}
	for i, snd := range sounds {
		resp.Sounds[i] = Sound{
			SoundID:  snd.ID,
			Name:     snd.Name,
			FilePath: snd.FilePath,
			Icon:     snd.Icon,
		}
	}
	return connect.NewResponse(resp), nil
}

// ListMixes lists the mixes of an owner, or every mix.
func (s *CatalogService) ListMixes(
	ctx context.Context,
	req *connect.Request[ListMixesRequest],
) (*connect.Response[ListMixesResponse], error) {
	var ownerID string
	if req.Msg.Owner != "" {
		owner, err := s.catalog.EnsureUser(ctx, req.Msg.Owner)
		if err != nil {
			return nil, toConnectError(s.config, err)
		}
		ownerID = owner.ID
	}

	mixes, err := s.catalog.ListMixes(ctx, ownerID)
	if err != nil {
		return nil, toConnectError(s.config, err)
	}

	resp := &ListMixesResponse{Mixes: make([]Mix, len(mixes))}
	for i, m := range mixes {
		resp.Mixes[i] = toMix(m)
	}
	return connect.NewResponse(resp), nil
}

// GetMix returns one mix.
func (s *CatalogService) GetMix(
	ctx context.Context,
	req *connect.Request[GetMixRequest],
) (*connect.Response[GetMixResponse], error) {
	m, err := s.catalog.ResolveMix(ctx, req.Msg.MixID)
	if err != nil {
		return nil, toConnectError(s.config, err)
	}
	return connect.NewResponse(&GetMixResponse{Mix: toMix(m)}), nil
}

// CreateMix stores a new mix.
func (s *CatalogService) CreateMix(
	ctx context.Context,
	req *connect.Request[CreateMixRequest],
) (*connect.Response[CreateMixResponse], error) {
	if req.Msg.Owner == "" {
		return nil, invalidArgument("owner is required")
	}
	name, err := s.rules.Check(req.Msg.Name, len(req.Msg.Tracks))
	if err != nil {
		return nil, toConnectError(s.config, err)
	}

	owner, err := s.catalog.EnsureUser(ctx, req.Msg.Owner)
	if err != nil {
		return nil, toConnectError(s.config, err)
	}

	m, err := s.catalog.CreateMix(ctx, owner.ID, name, toTrackInputs(req.Msg.Tracks))
	if err != nil {
		return nil, toConnectError(s.config, err)
	}
	return connect.NewResponse(&CreateMixResponse{Mix: toMix(m)}), nil
}

// UpdateMix renames a mix and replaces its sounds.
func (s *CatalogService) UpdateMix(
	ctx context.Context,
	req *connect.Request[UpdateMixRequest],
) (*connect.Response[UpdateMixResponse], error) {
	if req.Msg.MixID == "" {
		return nil, invalidArgument("mix_id is required")
	}
	name, err := s.rules.Check(req.Msg.Name, len(req.Msg.Tracks))
	if err != nil {
		return nil, toConnectError(s.config, err)
	}

	m, err := s.catalog.UpdateMix(ctx, req.Msg.MixID, name, toTrackInputs(req.Msg.Tracks))
	if err != nil {
		return nil, toConnectError(s.config, err)
	}
	return connect.NewResponse(&UpdateMixResponse{Mix: toMix(m)}), nil
}

// DeleteMix deletes a mix and its tracks.
func (s *CatalogService) DeleteMix(
	ctx context.Context,
	req *connect.Request[DeleteMixRequest],
) (*connect.Response[DeleteMixResponse], error) {
	if err := s.catalog.DeleteMix(ctx, req.Msg.MixID); err != nil {
		return nil, toConnectError(s.config, err)
	}
	return connect.NewResponse(&DeleteMixResponse{Result: success(s.config)}), nil
}

// RemoveTrack deletes one track of a mix.
func (s *CatalogService) RemoveTrack(
	ctx context.Context,
	req *connect.Request[RemoveTrackRequest],
) (*connect.Response[RemoveTrackResponse], error) {
	if err := s.catalog.RemoveTrack(ctx, req.Msg.MixID, req.Msg.TrackID); err != nil {
		return nil, toConnectError(s.config, err)
	}
	return connect.NewResponse(&RemoveTrackResponse{Result: success(s.config)}), nil
}

func toTrackInputs(tracks []NewMixTrack) []store.TrackInput {
	result := make([]store.TrackInput, len(tracks))
	for i, t := range tracks {
		result[i] = store.TrackInput{SoundID: t.SoundID, Volume: t.Volume}
	}
	return result
}

func toMix(m *mix.Mix) Mix {
	result := Mix{
		MixID:     m.ID,
		Name:      m.Name,
		OwnerID:   m.OwnerID,
		Tracks:    make([]MixTrack, len(m.Tracks)),
		UpdatedAt: m.UpdatedAt.Format(time.RFC3339),
	}
	for i, t := range m.Tracks {
		result.Tracks[i] = MixTrack{
			TrackID: t.ID,
			SoundID: t.SoundID,
			Name:    t.Name,
			Volume:  t.TargetVolume,
		}
	}
	return result
}
