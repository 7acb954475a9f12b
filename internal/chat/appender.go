package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/rs/zerolog"

	"lawchat-terminal/internal/backend"
	"lawchat-terminal/internal/logging"
	"lawchat-terminal/internal/models"
)

const readBufferSize = 4096

// ErrSendInFlight is returned when a reply is still streaming into the view
var ErrSendInFlight = errors.New("a reply is still streaming")

// Transport opens the streamed reply for one user message
type Transport interface {
	OpenStream(ctx context.Context, conversationID, content string) (io.ReadCloser, error)
}

// StreamEvent reports one mutation of the placeholder. The last event of a
// stream has Done set; Err is non-nil when the stream failed.
type StreamEvent struct {
	MessageID string
	Chunk     string
	Done      bool
	Err       error
}

// Appender sends user messages and streams the replies into a MessageList.
// Only one reply streams at a time.
type Appender struct {
	transport Transport
	list      *MessageList
	busy      atomic.Bool
	log       zerolog.Logger
}

func NewAppender(transport Transport, list *MessageList) *Appender {
	return &Appender{
		transport: transport,
		list:      list,
		log:       logging.WithComponent("appender"),
	}
}

// Busy reports whether a reply is streaming
func (a *Appender) Busy() bool {
	return a.busy.Load()
}

// Stream appends an empty pending assistant message, then requests the reply
// in the background and feeds it into that message. The placeholder exists
// when Stream returns. The channel yields one event per decoded chunk and is
// closed after the final Done event.
func (a *Appender) Stream(ctx context.Context, conversationID, content string) (<-chan StreamEvent, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("cannot send without a conversation id")
	}
	if !a.busy.CompareAndSwap(false, true) {
		return nil, ErrSendInFlight
	}

	placeholder := a.list.Append(models.Message{
		Role:   models.RoleAssistant,
		Status: models.StatusPending,
	})

	events := make(chan StreamEvent, 16)
	go func() {
		defer close(events)
		defer a.busy.Store(false)
		a.run(ctx, conversationID, content, placeholder.ID, events)
	}()

	return events, nil
}

// SendMessage streams a reply and blocks until it is complete
func (a *Appender) SendMessage(ctx context.Context, conversationID, content string) error {
	events, err := a.Stream(ctx, conversationID, content)
	if err != nil {
		return err
	}
	done := false
	for ev := range events {
		if ev.Done {
			done = true
			err = ev.Err
		}
	}
	if !done {
		return ctx.Err()
	}
	return err
}

func (a *Appender) run(ctx context.Context, conversationID, content, messageID string, events chan<- StreamEvent) {
	log := a.log.With().
		Str("conversation", conversationID).
		Str("message", messageID).
		Logger()

	body, err := a.transport.OpenStream(ctx, conversationID, content)
	if err != nil {
		log.Error().Err(err).Msg("reply request rejected")
		a.finish(ctx, messageID, err, events)
		return
	}
	defer body.Close()

	decoder := backend.NewTextDecoder()
	buf := make([]byte, readBufferSize)
	total := 0
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			total += n
			if !a.emit(ctx, messageID, decoder.Decode(buf[:n]), events) {
				log.Warn().Msg("placeholder removed, dropping rest of reply")
				a.finish(ctx, messageID, nil, events)
				return
			}
		}

		if readErr == io.EOF {
			a.emit(ctx, messageID, decoder.Flush(), events)
			log.Debug().Int("bytes", total).Msg("reply complete")
			a.finish(ctx, messageID, nil, events)
			return
		}
		if readErr != nil {
			err := &backend.Error{Kind: backend.KindNetwork, Op: "read reply", Err: readErr}
			if ctx.Err() != nil {
				err.Err = ctx.Err()
			}
			log.Error().Err(readErr).Int("bytes", total).Msg("reply stream broke")
			a.emit(ctx, messageID, decoder.Flush(), events)
			a.finish(ctx, messageID, err, events)
			return
		}
	}
}

// emit applies one decoded chunk to the placeholder and reports it. It
// returns false once the placeholder no longer exists.
func (a *Appender) emit(ctx context.Context, messageID, text string, events chan<- StreamEvent) bool {
	if text == "" {
		return true
	}
	if !a.list.AppendContent(messageID, text) {
		return false
	}
	a.send(ctx, StreamEvent{MessageID: messageID, Chunk: text}, events)
	return true
}

func (a *Appender) finish(ctx context.Context, messageID string, err error, events chan<- StreamEvent) {
	status := models.StatusComplete
	if err != nil {
		status = models.StatusFailed
	}
	a.list.SetStatus(messageID, status)
	a.send(ctx, StreamEvent{MessageID: messageID, Done: true, Err: err}, events)
}

func (a *Appender) send(ctx context.Context, ev StreamEvent, events chan<- StreamEvent) {
	select {
	case events <- ev:
		return
	default:
	}
	select {
	case events <- ev:
	case <-ctx.Done():
		// Nobody is listening any more; the list already holds the change
	}
}
