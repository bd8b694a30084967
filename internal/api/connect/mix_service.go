package connect

import (
	"context"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"

	"github.com/osa030/sleepmix/internal/app/notification"
	"github.com/osa030/sleepmix/internal/app/session"
	"github.com/osa030/sleepmix/internal/infra/config"
)

// MixService implements the MixService RPC.
type MixService struct {
	session *session.Manager
	config  *config.Config
}

// NewMixService creates a new MixService.
func NewMixService(session *session.Manager, cfg *config.Config) *MixService {
	return &MixService{
		session: session,
		config:  cfg,
	}
}

// NewMixServiceHandler builds the HTTP handler serving every MixService procedure.
func NewMixServiceHandler(svc *MixService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(MixServiceBindProcedure, connect.NewUnaryHandler(MixServiceBindProcedure, svc.Bind, opts...))
	mux.Handle(MixServiceUnbindProcedure, connect.NewUnaryHandler(MixServiceUnbindProcedure, svc.Unbind, opts...))
	mux.Handle(MixServicePlayProcedure, connect.NewUnaryHandler(MixServicePlayProcedure, svc.Play, opts...))
	mux.Handle(MixServiceStopProcedure, connect.NewUnaryHandler(MixServiceStopProcedure, svc.Stop, opts...))
	mux.Handle(MixServiceSetVolumeProcedure, connect.NewUnaryHandler(MixServiceSetVolumeProcedure, svc.SetVolume, opts...))
	mux.Handle(MixServiceToggleTrackProcedure, connect.NewUnaryHandler(MixServiceToggleTrackProcedure, svc.ToggleTrack, opts...))
	mux.Handle(MixServiceGetStatusProcedure, connect.NewUnaryHandler(MixServiceGetStatusProcedure, svc.GetStatus, opts...))
	mux.Handle(MixServiceSubscribeNotificationsProcedure,
		connect.NewServerStreamHandler(MixServiceSubscribeNotificationsProcedure, svc.SubscribeNotifications, opts...))
	return "/" + MixServiceName + "/", mux
}

// Bind handles client bind requests.
func (s *MixService) Bind(
	ctx context.Context,
	req *connect.Request[BindRequest],
) (*connect.Response[BindResponse], error) {
	if req.Msg.Name == "" {
		return nil, invalidArgument("name is required")
	}

	bindingID, err := s.session.Bind(req.Msg.Name, req.Msg.ClientID)
	if err != nil {
		return nil, toConnectError(s.config, err)
	}

	return connect.NewResponse(&BindResponse{
		BindingID: bindingID,
	}), nil
}

// Unbind handles client unbind requests. Playback continues.
func (s *MixService) Unbind(
	ctx context.Context,
	req *connect.Request[UnbindRequest],
) (*connect.Response[UnbindResponse], error) {
	if err := s.session.Unbind(req.Msg.BindingID); err != nil {
		return nil, toConnectError(s.config, err)
	}
	return connect.NewResponse(&UnbindResponse{Result: success(s.config)}), nil
}

// Play starts a mix. Tracks that could not start are listed in the response.
func (s *MixService) Play(
	ctx context.Context,
	req *connect.Request[PlayRequest],
) (*connect.Response[PlayResponse], error) {
	if err := s.session.ValidateBinding(req.Msg.BindingID); err != nil {
		return nil, toConnectError(s.config, err)
	}
	if req.Msg.MixID == "" {
		return nil, invalidArgument("mix_id is required")
	}

	result, err := s.session.Start(ctx, req.Msg.MixID)
	if err != nil {
		return nil, toConnectError(s.config, err)
	}

	resp := &PlayResponse{
		Result:     success(s.config),
		Started:    result.Started,
		Retargeted: result.Retargeted,
		Unchanged:  result.Unchanged,
		Stopped:    result.Stopped,
	}
	for _, f := range result.Failed {
		code := session.ErrorCode(f.Err)
		resp.Failed = append(resp.Failed, TrackFailure{
			TrackID: f.TrackID,
			Code:    code,
			Message: s.config.GetMessage(code),
		})
	}
	return connect.NewResponse(resp), nil
}

// Stop stops every track and waits for the fade-outs.
func (s *MixService) Stop(
	ctx context.Context,
	req *connect.Request[StopRequest],
) (*connect.Response[StopResponse], error) {
	if err := s.session.ValidateBinding(req.Msg.BindingID); err != nil {
		return nil, toConnectError(s.config, err)
	}
	if err := s.session.Stop(ctx); err != nil {
		return nil, toConnectError(s.config, err)
	}
	return connect.NewResponse(&StopResponse{Result: success(s.config)}), nil
}

// SetVolume changes one track's volume. Values outside [0,1] are clamped.
func (s *MixService) SetVolume(
	ctx context.Context,
	req *connect.Request[SetVolumeRequest],
) (*connect.Response[SetVolumeResponse], error) {
	if err := s.session.ValidateBinding(req.Msg.BindingID); err != nil {
		return nil, toConnectError(s.config, err)
	}
	if err := s.session.SetTrackVolume(req.Msg.TrackID, req.Msg.Volume); err != nil {
		return nil, toConnectError(s.config, err)
	}
	return connect.NewResponse(&SetVolumeResponse{Result: success(s.config)}), nil
}

// ToggleTrack starts or stops one track of the current mix.
func (s *MixService) ToggleTrack(
	ctx context.Context,
	req *connect.Request[ToggleTrackRequest],
) (*connect.Response[ToggleTrackResponse], error) {
	if err := s.session.ValidateBinding(req.Msg.BindingID); err != nil {
		return nil, toConnectError(s.config, err)
	}
	playing, err := s.session.ToggleTrack(ctx, req.Msg.TrackID)
	if err != nil {
		return nil, toConnectError(s.config, err)
	}
	return connect.NewResponse(&ToggleTrackResponse{
		Result:  success(s.config),
		Playing: playing,
	}), nil
}

// GetStatus returns the current session status.
func (s *MixService) GetStatus(
	ctx context.Context,
	req *connect.Request[GetStatusRequest],
) (*connect.Response[GetStatusResponse], error) {
	status := s.session.GetStatus()

	resp := &GetStatusResponse{
		SessionInfo:   status.SessionInfo,
		PlaybackState: status.PlaybackState.String(),
		HostSignal:    status.Signal.String(),
		HeldSlots:     status.HeldSlots,
		Tracks:        make([]TrackStatus, len(status.Tracks)),
	}
	for i, t := range status.Tracks {
		resp.Tracks[i] = TrackStatus{
			TrackID:      t.TrackID,
			Name:         t.Name,
			TargetVolume: t.TargetVolume,
			Volume:       t.Volume,
			Playing:      t.Playing,
			Fading:       t.Fading,
		}
	}
	for _, b := range s.session.ListBindings() {
		resp.Bindings = append(resp.Bindings, BindingInfo{
			BindingID:  b.ID,
			Name:       b.Name,
			ClientID:   b.ClientID,
			BoundAt:    b.BoundAt.Format(time.RFC3339),
			LastSeenAt: b.LastSeenAt.Format(time.RFC3339),
			Commands:   b.Commands,
		})
	}

	return connect.NewResponse(resp), nil
}

// SubscribeNotifications streams session notifications, starting with the full status.
func (s *MixService) SubscribeNotifications(
	ctx context.Context,
	req *connect.Request[SubscribeNotificationsRequest],
	stream *connect.ServerStream[notification.Notification],
) error {
	if req.Msg.BindingID != "" {
		if err := s.session.ValidateBinding(req.Msg.BindingID); err != nil {
			return toConnectError(s.config, err)
		}
	}

	adapter := &notificationStreamAdapter{stream: stream}
	subscriptionID, err := s.session.Subscribe(adapter)
	if err != nil {
		return toConnectError(s.config, err)
	}

	// Wait for context cancellation or session end
	select {
	case <-ctx.Done():
	case <-s.session.Done():
	}

	s.session.Unsubscribe(subscriptionID)
	return nil
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[notification.Notification]
}

func (a *notificationStreamAdapter) Send(n *notification.Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stream.Send(n)
}
