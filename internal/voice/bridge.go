// Package voice provides the side-effect-only WebSocket bridge to the
// realtime voice service. The bridge streams a tagged utterance (or a
// computed answer) and drains response deltas; it never writes anything
// back into the request state.
package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/caretaker-ai/caretaker/internal/config"
	"github.com/caretaker-ai/caretaker/internal/router"
	"github.com/caretaker-ai/caretaker/internal/state"
)

// ErrBridgeFailed is returned when the realtime session cannot be
// established or the utterance cannot be sent.
var ErrBridgeFailed = errors.New("voice bridge failed")

// Tag classifies what is being streamed to the voice service.
type Tag string

const (
	TagNormal Tag = "normal"
	TagWeb    Tag = "web"
	TagMed    Tag = "med"
	TagAddT   Tag = "addt"
	TagUI     Tag = "ui"
	// TagExtra marks a computed answer (web or medical) rather than the
	// raw utterance.
	TagExtra Tag = "extra"
)

// TagForRoute maps a route tag to the voice tag sent alongside the
// utterance.
func TagForRoute(route router.RouteTag) Tag {
	switch route {
	case router.TagWeb:
		return TagWeb
	case router.TagMedical:
		return TagMed
	case router.TagAddTreatment:
		return TagAddT
	case router.TagUIChange:
		return TagUI
	default:
		// TEXT and PATIENT both stream as normal conversation.
		return TagNormal
	}
}

// Bridge is a one-shot WebSocket client for the realtime voice service.
type Bridge struct {
	config config.VoiceConfig

	// Callbacks for observed deltas. All optional.
	OnTextDelta  func(delta string)
	OnAudioDelta func(audioBase64 string)
	OnError      func(err error)
}

// NewBridge creates a bridge from configuration.
func NewBridge(cfg config.VoiceConfig) *Bridge {
	if cfg.ResponseBudget == 0 {
		cfg.ResponseBudget = 10 * time.Second
	}
	if cfg.Subprotocol == "" {
		cfg.Subprotocol = "realtime"
	}
	if cfg.SessionPause == 0 {
		cfg.SessionPause = 200 * time.Millisecond
	}
	return &Bridge{config: cfg}
}

// Stream opens a session, sends the snapshot's utterance (or computed
// answer), requests response generation, and drains deltas until the
// response completes, the budget elapses, or the socket closes. The bridge
// contributes nothing back to the request state.
func (b *Bridge) Stream(ctx context.Context, snap state.VoiceSnapshot) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
		Subprotocols:     []string{b.config.Subprotocol},
	}

	log.Debug().
		Str("endpoint", b.config.Endpoint).
		Str("route", snap.Route.String()).
		Msg("voice bridge: connecting")

	conn, _, err := dialer.DialContext(ctx, b.config.Endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: dial: %v", ErrBridgeFailed, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"type": "session.init"}); err != nil {
		return fmt.Errorf("%w: session init: %v", ErrBridgeFailed, err)
	}

	// The service needs a beat to set up the session before input arrives.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(b.config.SessionPause):
	}

	if err := conn.WriteJSON(b.inputMessage(snap)); err != nil {
		return fmt.Errorf("%w: send input: %v", ErrBridgeFailed, err)
	}
	if err := conn.WriteJSON(map[string]any{"type": "response.create"}); err != nil {
		return fmt.Errorf("%w: response create: %v", ErrBridgeFailed, err)
	}

	return b.drain(ctx, conn)
}

// inputMessage builds the tagged input_text message. A computed web or
// medical answer streams as "extra" without the profile; everything else
// streams the raw utterance with the profile attached.
func (b *Bridge) inputMessage(snap state.VoiceSnapshot) map[string]any {
	msg := map[string]any{
		"type": "conversation.item.input_text",
	}

	if snap.Source == state.SourceWeb || snap.Source == state.SourceMedical {
		msg["text"] = snap.FinalAnswer
		msg["tag"] = string(TagExtra)
		return msg
	}

	msg["text"] = snap.Input
	msg["tag"] = string(TagForRoute(snap.Route))
	if snap.Profile != nil {
		msg["patientProfile"] = snap.Profile
	}
	return msg
}

// drain reads messages until both response.text.done and response.audio.done
// arrive, the wall-clock budget elapses, or the socket closes.
func (b *Bridge) drain(ctx context.Context, conn *websocket.Conn) error {
	deadline := time.Now().Add(b.config.ResponseBudget)
	textDone := false
	audioDone := false

	for !(textDone && audioDone) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if time.Now().After(deadline) {
			log.Debug().Dur("budget", b.config.ResponseBudget).Msg("voice bridge: response budget elapsed")
			return nil
		}
		conn.SetReadDeadline(deadline)

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Msg("voice bridge: socket closed by peer")
				return nil
			}
			if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
				return nil
			}
			if b.OnError != nil {
				b.OnError(err)
			}
			return nil
		}

		var event voiceEvent
		if err := json.Unmarshal(message, &event); err != nil {
			log.Debug().Err(err).Msg("voice bridge: ignoring unparseable message")
			continue
		}

		switch event.Type {
		case "response.text.done":
			textDone = true
		case "response.audio.done":
			audioDone = true
		case "unmute.response.text.delta.ready":
			if b.OnTextDelta != nil {
				b.OnTextDelta(event.Delta)
			}
		case "response.audio.delta":
			if b.OnAudioDelta != nil {
				b.OnAudioDelta(event.Delta)
			}
		default:
			log.Debug().Str("type", event.Type).Msg("voice bridge: ignoring event")
		}
	}

	log.Debug().Msg("voice bridge: response complete")
	return nil
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

type voiceEvent struct {
	Type  string `json:"type"`
	Delta string `json:"delta,omitempty"`
}
