package connect

import (
	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sleepmix/internal/app/session"
	"github.com/osa030/sleepmix/internal/infra/config"
)

// toConnectError converts a session or store error to a connect error.
// The configured message replaces the internal error text; the code travels in ErrorCodeHeader.
func toConnectError(cfg *config.Config, err error) *connect.Error {
	code := session.ErrorCode(err)

	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return cerr
	}

	var (
		connectCode connect.Code
		rejection   *session.RejectionError
	)
	switch code {
	case "mix_not_found", "sound_not_found", "track_not_in_mix":
		connectCode = connect.CodeNotFound
	case "nothing_playable", "track_limit_exceeded", "too_few_tracks":
		connectCode = connect.CodeFailedPrecondition
	case "duplicate_track", "unsupported_format", "resource_unavailable",
		"invalid_mix_name", "too_few_sounds", "too_many_sounds":
		connectCode = connect.CodeInvalidArgument
	case "invalid_binding":
		connectCode = connect.CodePermissionDenied
	case "session_terminated":
		connectCode = connect.CodeUnavailable
	default:
		if errors.As(err, &rejection) {
			connectCode = connect.CodeFailedPrecondition
			break
		}
		connectCode = connect.CodeInternal
		zlog.Error().Msgf("rpc: internal error: err=%v", err)
	}

	e := connect.NewError(connectCode, errors.New(cfg.GetMessage(code)))
	e.Meta().Set(ErrorCodeHeader, code)
	return e
}

// ErrorCodeOf returns the message code of a failed call, or "" when none was sent.
func ErrorCodeOf(err error) string {
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return cerr.Meta().Get(ErrorCodeHeader)
	}
	return ""
}

func success(cfg *config.Config) Result {
	return Result{Success: true, Code: "success", Message: cfg.GetMessage("success")}
}

func invalidArgument(msg string) *connect.Error {
	return connect.NewError(connect.CodeInvalidArgument, errors.New(msg))
}
