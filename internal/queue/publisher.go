package queue

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/goccy/go-json"
    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/rs/zerolog"
)

const (
    // dialTimeout bounds the TCP connect and AMQP handshake.
    dialTimeout = 3 * time.Second
    bufferSize  = 256
)

// ErrBufferFull is returned when events arrive faster than the broker
// accepts them.
var ErrBufferFull = errors.New("booking event buffer full")

// Publisher sends booking events to RabbitMQ from a single worker.
// PublishBookingCreated only queues the event, so a slow or unreachable
// broker never delays the caller.  Run owns the connection and re-opens it
// after the broker drops it.
type Publisher struct {
    url     string
    log     zerolog.Logger
    timeout time.Duration
    events  chan BookingCreatedEvent

    conn *amqp.Connection
    ch   *amqp.Channel
}

// NewPublisher returns a Publisher for url.  No connection is made until
// Run delivers the first event.
func NewPublisher(url string, log zerolog.Logger) *Publisher {
    return &Publisher{
        url:     url,
        log:     log,
        timeout: dialTimeout,
        events:  make(chan BookingCreatedEvent, bufferSize),
    }
}

// PublishBookingCreated queues ev for delivery.  It returns ErrBufferFull
// instead of blocking.
func (p *Publisher) PublishBookingCreated(_ context.Context, ev BookingCreatedEvent) error {
    select {
    case p.events <- ev:
        return nil
    default:
        return ErrBufferFull
    }
}

// Run delivers queued events until ctx is done, then closes the
// connection.  A failed delivery is logged and the event dropped.
func (p *Publisher) Run(ctx context.Context) {
    defer p.reset()
    for {
        select {
        case <-ctx.Done():
            if n := len(p.events); n > 0 {
                p.log.Warn().Int("dropped", n).Msg("publisher stopped with undelivered events")
            }
            return
        case ev := <-p.events:
            if err := p.send(ctx, ev); err != nil {
                p.log.Warn().Err(err).Str("booking_id", ev.BookingID).Msg("publish booking.created failed")
                p.reset()
            }
        }
    }
}

// channel returns an open channel with the booking queue declared,
// dialling the broker when needed.
func (p *Publisher) channel() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    if p.conn == nil || p.conn.IsClosed() {
        conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.timeout)})
        if err != nil {
            return nil, fmt.Errorf("dial broker: %w", err)
        }
        p.conn = conn
    }
    ch, err := p.conn.Channel()
    if err != nil {
        return nil, fmt.Errorf("open channel: %w", err)
    }
    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(BookingCreatedQueue, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        return nil, fmt.Errorf("declare queue: %w", err)
    }
    p.ch = ch
    return ch, nil
}

// send publishes ev as a persistent JSON message.
func (p *Publisher) send(ctx context.Context, ev BookingCreatedEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }
    ch, err := p.channel()
    if err != nil {
        return err
    }
    msg := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", BookingCreatedQueue, false, false, msg); err != nil {
        return fmt.Errorf("publish: %w", err)
    }
    return nil
}

// reset drops the channel and connection so the next send re-dials.
func (p *Publisher) reset() {
    if p.ch != nil {
        if err := p.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
            p.log.Debug().Err(err).Msg("close channel")
        }
        p.ch = nil
    }
    if p.conn != nil {
        if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
            p.log.Debug().Err(err).Msg("close connection")
        }
        p.conn = nil
    }
}

// NoopPublisher discards events.  It is used when EVENTS_ENABLED is false.
type NoopPublisher struct{}

func (NoopPublisher) PublishBookingCreated(context.Context, BookingCreatedEvent) error { return nil }
