package marketdata

import (
	"context"
	"encoding/json"
	"iter"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/rxtech-lab/argo-signals/internal/types"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
)

const (
	alpacaHandshakeTimeout = 10 * time.Second
	alpacaControlTimeout   = 10 * time.Second
	// alpacaReadTimeout bounds the silence between server frames; the feed
	// pings well inside it.
	alpacaReadTimeout = 60 * time.Second
	alpacaReadLimit   = 1 << 20
)

// AlpacaStreamConfig configures the realtime bar stream connection.
type AlpacaStreamConfig struct {
	URL       string `validate:"required,url"`
	APIKey    string `validate:"required"`
	APISecret string `validate:"required"`
}

// AlpacaStream consumes the alpaca v2 market data websocket and yields one
// Candle per minute bar. Each StreamBars call is a single connection;
// reconnecting is the caller's loop.
type AlpacaStream struct {
	config AlpacaStreamConfig
}

var _ BarStreamer = (*AlpacaStream)(nil)

// NewAlpacaStream creates a bar streamer from validated configuration.
func NewAlpacaStream(config AlpacaStreamConfig) (*AlpacaStream, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid alpaca stream configuration", err)
	}

	return &AlpacaStream{config: config}, nil
}

type alpacaAuthRequest struct {
	Action string `json:"action"`
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

type alpacaSubscribeRequest struct {
	Action string   `json:"action"`
	Bars   []string `json:"bars"`
}

// alpacaMessage covers every frame shape the feed sends: control messages
// ("success", "error", "subscription") and bar payloads ("b").
type alpacaMessage struct {
	Type    string    `json:"T"`
	Msg     string    `json:"msg"`
	Code    int       `json:"code"`
	Symbol  string    `json:"S"`
	Open    float64   `json:"o"`
	High    float64   `json:"h"`
	Low     float64   `json:"l"`
	Close   float64   `json:"c"`
	Volume  float64   `json:"v"`
	BarTime time.Time `json:"t"`
}

// StreamBars implements BarStreamer. Context cancellation ends the iteration
// silently; any connection failure yields one final error and stops.
func (s *AlpacaStream) StreamBars(ctx context.Context, symbols []string) iter.Seq2[types.Candle, error] {
	return func(yield func(types.Candle, error) bool) {
		conn, err := s.connect(ctx, symbols)
		if err != nil {
			yield(types.Candle{}, err)

			return
		}
		defer conn.Close()

		// Closing the socket is what unblocks a pending read when the
		// context ends.
		stop := context.AfterFunc(ctx, func() {
			_ = conn.Close()
		})
		defer stop()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(alpacaReadTimeout))

			_, payload, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					return
				}

				yield(types.Candle{}, errors.Wrap(errors.ErrCodeStreamDisconnected, "bar stream read failed", err))

				return
			}

			var messages []alpacaMessage
			if err := json.Unmarshal(payload, &messages); err != nil {
				// Non-array frames are control noise.
				continue
			}

			for _, message := range messages {
				if message.Type != "b" {
					continue
				}

				if !yield(barCandle(message), nil) {
					return
				}
			}
		}
	}
}

// connect dials the feed and walks the handshake: greeting, auth,
// subscription.
func (s *AlpacaStream) connect(ctx context.Context, symbols []string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: alpacaHandshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, s.config.URL, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeTransientIO, err, "cannot dial bar stream %s", s.config.URL)
	}

	conn.SetReadLimit(alpacaReadLimit)

	if err := s.awaitControl(conn, "connected"); err != nil {
		conn.Close()

		return nil, err
	}

	auth := alpacaAuthRequest{Action: "auth", Key: s.config.APIKey, Secret: s.config.APISecret}
	if err := conn.WriteJSON(auth); err != nil {
		conn.Close()

		return nil, errors.Wrap(errors.ErrCodeTransientIO, "bar stream auth write failed", err)
	}

	if err := s.awaitControl(conn, "authenticated"); err != nil {
		conn.Close()

		return nil, err
	}

	subscribe := alpacaSubscribeRequest{Action: "subscribe", Bars: symbols}
	if err := conn.WriteJSON(subscribe); err != nil {
		conn.Close()

		return nil, errors.Wrap(errors.ErrCodeTransientIO, "bar stream subscribe write failed", err)
	}

	return conn, nil
}

// awaitControl reads one frame and requires the expected success message in
// it. An explicit error frame is surfaced with the feed's code and message.
func (s *AlpacaStream) awaitControl(conn *websocket.Conn, expected string) error {
	_ = conn.SetReadDeadline(time.Now().Add(alpacaControlTimeout))

	_, payload, err := conn.ReadMessage()
	if err != nil {
		return errors.Wrapf(errors.ErrCodeTransientIO, err, "bar stream handshake read failed awaiting %q", expected)
	}

	var messages []alpacaMessage
	if err := json.Unmarshal(payload, &messages); err != nil {
		return errors.Wrapf(errors.ErrCodeDataFormat, err, "unexpected bar stream handshake payload awaiting %q", expected)
	}

	for _, message := range messages {
		if message.Type == "error" {
			return errors.Newf(errors.ErrCodeStreamDisconnected, "bar stream error %d: %s", message.Code, message.Msg)
		}

		if message.Type == "success" && message.Msg == expected {
			return nil
		}
	}

	return errors.Newf(errors.ErrCodeStreamDisconnected, "bar stream handshake did not confirm %q", expected)
}

func barCandle(message alpacaMessage) types.Candle {
	ts := message.BarTime.UTC()

	return types.Candle{
		Id:        candleID(message.Symbol, ts.UnixMilli()),
		Symbol:    message.Symbol,
		Timeframe: types.Timeframe1Min,
		Time:      ts,
		Open:      message.Open,
		High:      message.High,
		Low:       message.Low,
		Close:     message.Close,
		Volume:    message.Volume,
	}
}
