package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/osa030/sleepmix/internal/app/notification"
)

// Client calls both services of a sleepmix server.
type Client struct {
	bind        *connect.Client[BindRequest, BindResponse]
	unbind      *connect.Client[UnbindRequest, UnbindResponse]
	play        *connect.Client[PlayRequest, PlayResponse]
	stop        *connect.Client[StopRequest, StopResponse]
	setVolume   *connect.Client[SetVolumeRequest, SetVolumeResponse]
	toggleTrack *connect.Client[ToggleTrackRequest, ToggleTrackResponse]
	getStatus   *connect.Client[GetStatusRequest, GetStatusResponse]
	subscribe   *connect.Client[SubscribeNotificationsRequest, notification.Notification]

	listSounds  *connect.Client[ListSoundsRequest, ListSoundsResponse]
	listMixes   *connect.Client[ListMixesRequest, ListMixesResponse]
	getMix      *connect.Client[GetMixRequest, GetMixResponse]
	createMix   *connect.Client[CreateMixRequest, CreateMixResponse]
	updateMix   *connect.Client[UpdateMixRequest, UpdateMixResponse]
	deleteMix   *connect.Client[DeleteMixRequest, DeleteMixResponse]
	removeTrack *connect.Client[RemoveTrackRequest, RemoveTrackResponse]
}

// NewClient creates a client for the server at baseURL.
// A non-empty token is sent with every call.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{
		WithJSON(),
		connect.WithInterceptors(NewTokenInterceptor(token)),
	}, opts...)

	return &Client{
		bind:        connect.NewClient[BindRequest, BindResponse](httpClient, baseURL+MixServiceBindProcedure, opts...),
		unbind:      connect.NewClient[UnbindRequest, UnbindResponse](httpClient, baseURL+MixServiceUnbindProcedure, opts...),
		play:        connect.NewClient[PlayRequest, PlayResponse](httpClient, baseURL+MixServicePlayProcedure, opts...),
		stop:        connect.NewClient[StopRequest, StopResponse](httpClient, baseURL+MixServiceStopProcedure, opts...),
		setVolume:   connect.NewClient[SetVolumeRequest, SetVolumeResponse](httpClient, baseURL+MixServiceSetVolumeProcedure, opts...),
		toggleTrack: connect.NewClient[ToggleTrackRequest, ToggleTrackResponse](httpClient, baseURL+MixServiceToggleTrackProcedure, opts...),
		getStatus:   connect.NewClient[GetStatusRequest, GetStatusResponse](httpClient, baseURL+MixServiceGetStatusProcedure, opts...),
		subscribe: connect.NewClient[SubscribeNotificationsRequest, notification.Notification](
			httpClient, baseURL+MixServiceSubscribeNotificationsProcedure, opts...),

		listSounds:  connect.NewClient[ListSoundsRequest, ListSoundsResponse](httpClient, baseURL+CatalogServiceListSoundsProcedure, opts...),
		listMixes:   connect.NewClient[ListMixesRequest, ListMixesResponse](httpClient, baseURL+CatalogServiceListMixesProcedure, opts...),
		getMix:      connect.NewClient[GetMixRequest, GetMixResponse](httpClient, baseURL+CatalogServiceGetMixProcedure, opts...),
		createMix:   connect.NewClient[CreateMixRequest, CreateMixResponse](httpClient, baseURL+CatalogServiceCreateMixProcedure, opts...),
		updateMix:   connect.NewClient[UpdateMixRequest, UpdateMixResponse](httpClient, baseURL+CatalogServiceUpdateMixProcedure, opts...),
		deleteMix:   connect.NewClient[DeleteMixRequest, DeleteMixResponse](httpClient, baseURL+CatalogServiceDeleteMixProcedure, opts...),
		removeTrack: connect.NewClient[RemoveTrackRequest, RemoveTrackResponse](httpClient, baseURL+CatalogServiceRemoveTrackProcedure, opts...),
	}
}

func call[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], msg *Req) (*Res, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) Bind(ctx context.Context, req *BindRequest) (*BindResponse, error) {
	return call(ctx, c.bind, req)
}

func (c *Client) Unbind(ctx context.Context, req *UnbindRequest) (*UnbindResponse, error) {
	return call(ctx, c.unbind, req)
}

func (c *Client) Play(ctx context.Context, req *PlayRequest) (*PlayResponse, error) {
	return call(ctx, c.play, req)
}

func (c *Client) Stop(ctx context.Context, req *StopRequest) (*StopResponse, error) {
	return call(ctx, c.stop, req)
}

func (c *Client) SetVolume(ctx context.Context, req *SetVolumeRequest) (*SetVolumeResponse, error) {
	return call(ctx, c.setVolume, req)
}

func (c *Client) ToggleTrack(ctx context.Context, req *ToggleTrackRequest) (*ToggleTrackResponse, error) {
	return call(ctx, c.toggleTrack, req)
}

func (c *Client) GetStatus(ctx context.Context) (*GetStatusResponse, error) {
	return call(ctx, c.getStatus, &GetStatusRequest{})
}

// SubscribeNotifications opens the notification stream. The caller must close it.
func (c *Client) SubscribeNotifications(
	ctx context.Context,
	req *SubscribeNotificationsRequest,
) (*connect.ServerStreamForClient[notification.Notification], error) {
	return c.subscribe.CallServerStream(ctx, connect.NewRequest(req))
}

func (c *Client) ListSounds(ctx context.Context) (*ListSoundsResponse, error) {
	return call(ctx, c.listSounds, &ListSoundsRequest{})
}

func (c *Client) ListMixes(ctx context.Context, req *ListMixesRequest) (*ListMixesResponse, error) {
	return call(ctx, c.listMixes, req)
}

func (c *Client) GetMix(ctx context.Context, req *GetMixRequest) (*GetMixResponse, error) {
	return call(ctx, c.getMix, req)
}

func (c *Client) CreateMix(ctx context.Context, req *CreateMixRequest) (*CreateMixResponse, error) {
	return call(ctx, c.createMix, req)
}

func (c *Client) UpdateMix(ctx context.Context, req *UpdateMixRequest) (*UpdateMixResponse, error) {
	return call(ctx, c.updateMix, req)
}

func (c *Client) DeleteMix(ctx context.Context, req *DeleteMixRequest) (*DeleteMixResponse, error) {
	return call(ctx, c.deleteMix, req)
}

func (c *Client) RemoveTrack(ctx context.Context, req *RemoveTrackRequest) (*RemoveTrackResponse, error) {
	return call(ctx, c.removeTrack, req)
}
