package gateway

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RequestInfo describes an outgoing request. The credential itself is never
// exposed to observers, only whether one was attached.
type RequestInfo struct {
	Op            string
	Method        string
	Path          string
	RequestID     string
	TokenAttached bool
	Attempt       int
}

// ResponseInfo describes the outcome of a request. Status is 0 when the
// request failed before a response arrived, in which case Err is set.
type ResponseInfo struct {
	Status   int
	Bytes    int
	Duration time.Duration
	Err      error
}

// Observer receives request lifecycle notifications. Implementations must be
// safe for concurrent use and must not block.
type Observer interface {
	RequestSent(ctx context.Context, req RequestInfo)
	ResponseReceived(ctx context.Context, req RequestInfo, res ResponseInfo)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) RequestSent(context.Context, RequestInfo) {}

func (NopObserver) ResponseReceived(context.Context, RequestInfo, ResponseInfo) {}

// Observers fans notifications out to several observers in order.
type Observers []Observer

func (o Observers) RequestSent(ctx context.Context, req RequestInfo) {
	for _, obs := range o {
		obs.RequestSent(ctx, req)
	}
}

func (o Observers) ResponseReceived(ctx context.Context, req RequestInfo, res ResponseInfo) {
	for _, obs := range o {
		obs.ResponseReceived(ctx, req, res)
	}
}

// LogObserver writes request and response events to a zerolog logger.
type LogObserver struct {
	logger zerolog.Logger
}

func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{logger: logger.With().Str("component", "gateway").Logger()}
}

func (l *LogObserver) RequestSent(_ context.Context, req RequestInfo) {
	l.logger.Debug().
		Str("op", req.Op).
		Str("method", req.Method).
		Str("path", req.Path).
		Str("request_id", req.RequestID).
		Bool("token_attached", req.TokenAttached).
		Int("attempt", req.Attempt).
		Msg("api request")
}

func (l *LogObserver) ResponseReceived(_ context.Context, req RequestInfo, res ResponseInfo) {
	var evt *zerolog.Event
	switch {
	case res.Err != nil:
		evt = l.logger.Warn().Err(res.Err)
	case res.Status == 401 && req.TokenAttached:
		evt = l.logger.Warn().Str("action", "credential rejected, signing out")
	case res.Status >= 500:
		evt = l.logger.Warn()
	case res.Status >= 400:
		evt = l.logger.Info()
	default:
		evt = l.logger.Debug()
	}
	evt.
		Str("op", req.Op).
		Str("method", req.Method).
		Str("path", req.Path).
		Str("request_id", req.RequestID).
		Int("status", res.Status).
		Int("bytes", res.Bytes).
		Dur("duration", res.Duration).
		Msg("api response")
}
