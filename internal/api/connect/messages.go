package connect

import "github.com/osa030/sleepmix/internal/app/notification"

const (
	MixServiceName     = "sleepmix.v1.MixService"
	CatalogServiceName = "sleepmix.v1.CatalogService"
)

// Procedure paths.
const (
	MixServiceBindProcedure                   = "/" + MixServiceName + "/Bind"
	MixServiceUnbindProcedure                 = "/" + MixServiceName + "/Unbind"
	MixServicePlayProcedure                   = "/" + MixServiceName + "/Play"
	MixServiceStopProcedure                   = "/" + MixServiceName + "/Stop"
	MixServiceSetVolumeProcedure              = "/" + MixServiceName + "/SetVolume"
	MixServiceToggleTrackProcedure            = "/" + MixServiceName + "/ToggleTrack"
	MixServiceGetStatusProcedure              = "/" + MixServiceName + "/GetStatus"
	MixServiceSubscribeNotificationsProcedure = "/" + MixServiceName + "/SubscribeNotifications"

	CatalogServiceListSoundsProcedure  = "/" + CatalogServiceName + "/ListSounds"
	CatalogServiceListMixesProcedure   = "/" + CatalogServiceName + "/ListMixes"
	CatalogServiceGetMixProcedure      = "/" + CatalogServiceName + "/GetMix"
	CatalogServiceCreateMixProcedure   = "/" + CatalogServiceName + "/CreateMix"
	CatalogServiceUpdateMixProcedure   = "/" + CatalogServiceName + "/UpdateMix"
	CatalogServiceDeleteMixProcedure   = "/" + CatalogServiceName + "/DeleteMix"
	CatalogServiceRemoveTrackProcedure = "/" + CatalogServiceName + "/RemoveTrack"
)

// ErrorCodeHeader carries the message code of a failed call.
const ErrorCodeHeader = "X-Error-Code"

// Result is the outcome of a command.
type Result struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (r *Result) GetResult() *Result {
	return r
}

type BindRequest struct {
	Name     string `json:"name"`
	ClientID string `json:"client_id,omitempty"`
}

type BindResponse struct {
	BindingID string `json:"binding_id"`
}

type UnbindRequest struct {
	BindingID string `json:"binding_id"`
}

type UnbindResponse struct {
	Result
}

type PlayRequest struct {
	BindingID string `json:"binding_id"`
	MixID     string `json:"mix_id"`
}

// TrackFailure reports a track of the mix that is not playing.
type TrackFailure struct {
	TrackID string `json:"track_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PlayResponse struct {
	Result
	Started    []string       `json:"started,omitempty"`
	Retargeted []string       `json:"retargeted,omitempty"`
	Unchanged  []string       `json:"unchanged,omitempty"`
	Stopped    []string       `json:"stopped,omitempty"`
	Failed     []TrackFailure `json:"failed,omitempty"`
}

type StopRequest struct {
	BindingID string `json:"binding_id"`
}

type StopResponse struct {
	Result
}

type SetVolumeRequest struct {
	BindingID string  `json:"binding_id"`
	TrackID   string  `json:"track_id"`
	Volume    float64 `json:"volume"`
}

type SetVolumeResponse struct {
	Result
}

type ToggleTrackRequest struct {
	BindingID string `json:"binding_id"`
	TrackID   string `json:"track_id"`
}

type ToggleTrackResponse struct {
	Result
	Playing bool `json:"playing"`
}

type GetStatusRequest struct{}

// BindingInfo describes a bound client.
type BindingInfo struct {
	BindingID  string `json:"binding_id"`
	Name       string `json:"name"`
	ClientID   string `json:"client_id,omitempty"`
	BoundAt    string `json:"bound_at"`
	LastSeenAt string `json:"last_seen_at"`
	Commands   int    `json:"commands"`
}

type GetStatusResponse struct {
	SessionInfo   *notification.SessionInfo `json:"session_info"`
	PlaybackState string                    `json:"playback_state"`
	HostSignal    string                    `json:"host_signal"`
	HeldSlots     int                       `json:"held_slots"`
	Tracks        []TrackStatus             `json:"tracks"`
	Bindings      []BindingInfo             `json:"bindings"`
}

// TrackStatus describes one track of the current mix.
type TrackStatus struct {
	TrackID      string  `json:"track_id"`
	Name         string  `json:"name"`
	TargetVolume float64 `json:"target_volume"`
	Volume       float64 `json:"volume"`
	Playing      bool    `json:"playing"`
	Fading       bool    `json:"fading"`
}

type SubscribeNotificationsRequest struct {
	BindingID string `json:"binding_id"`
}

// Sound is a catalog entry.
type Sound struct {
	SoundID  string `json:"sound_id"`
	Name     string `json:"name"`
	FilePath string `json:"file_path"`
	Icon     string `json:"icon,omitempty"`
}

type ListSoundsRequest struct{}

type ListSoundsResponse struct {
	Sounds []Sound `json:"sounds"`
}

// MixTrack is one track of a stored mix.
type MixTrack struct {
	TrackID string  `json:"track_id"`
	SoundID string  `json:"sound_id"`
	Name    string  `json:"name"`
	Volume  float64 `json:"volume"`
}

// Mix is a stored mix.
type Mix struct {
	MixID     string     `json:"mix_id"`
	Name      string     `json:"name"`
	OwnerID   string     `json:"owner_id,omitempty"`
	Tracks    []MixTrack `json:"tracks"`
	UpdatedAt string     `json:"updated_at"`
}

type ListMixesRequest struct {
	Owner string `json:"owner,omitempty"` // Owner name; empty lists every mix
}

type ListMixesResponse struct {
	Mixes []Mix `json:"mixes"`
}

type GetMixRequest struct {
	MixID string `json:"mix_id"`
}

type GetMixResponse struct {
	Mix Mix `json:"mix"`
}

// NewMixTrack is one sound of a mix to create.
type NewMixTrack struct {
	SoundID string  `json:"sound_id"`
	Volume  float64 `json:"volume"`
}

type CreateMixRequest struct {
	Owner  string        `json:"owner"`
	Name   string        `json:"name"`
	Tracks []NewMixTrack `json:"tracks"`
}

type CreateMixResponse struct {
	Mix Mix `json:"mix"`
}

// UpdateMixRequest replaces the name and sounds of a mix.
type UpdateMixRequest struct {
	MixID  string        `json:"mix_id"`
	Name   string        `json:"name"`
	Tracks []NewMixTrack `json:"tracks"`
}

type UpdateMixResponse struct {
	Mix Mix `json:"mix"`
}

type DeleteMixRequest struct {
	MixID string `json:"mix_id"`
}

type DeleteMixResponse struct {
	Result
}

type RemoveTrackRequest struct {
	MixID   string `json:"mix_id"`
	TrackID string `json:"track_id"`
}

type RemoveTrackResponse struct {
	Result
}
