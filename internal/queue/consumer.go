package queue

import (
    "context"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    "github.com/goccy/go-json"
    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/rs/zerolog"
)

// Consumer reads the booking queue and appends one line per event to
// <dir>/booking.log.
type Consumer struct {
    url string
    dir string
    log zerolog.Logger
}

// NewConsumer returns a Consumer for the broker at url writing into dir.
func NewConsumer(url, dir string, log zerolog.Logger) *Consumer {
    return &Consumer{url: url, dir: dir, log: log}
}

// Run connects, consumes and reconnects with backoff until ctx is done.
// It returns ctx.Err() on shutdown.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("dial broker failed")
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.Warn().Err(err).Msg("consume loop ended, reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("open channel: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.Warn().Err(err).Msg("set QoS failed")
    }
    if _, err := ch.QueueDeclare(BookingCreatedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("declare queue: %w", err)
    }
    msgs, err := ch.Consume(BookingCreatedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.handle(d.Body); err != nil {
                c.log.Error().Err(err).Msg("handle booking event")
                _ = d.Nack(false, false) // no requeue, a bad message would loop forever
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// handle decodes one message body and appends it to the booking log.
func (c *Consumer) handle(body []byte) error {
    var ev BookingCreatedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.BookingID == "" {
        return errors.New("event has no booking_id")
    }
    if err := os.MkdirAll(c.dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", c.dir, err)
    }
    f, err := os.OpenFile(filepath.Join(c.dir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(formatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func formatLine(ev BookingCreatedEvent) string {
    return fmt.Sprintf("[%s] Booking created | booking_id=%s | showtime_id=%d | movie_id=%d | theater=%q | seat=%d | user_id=%q | starts=%s | ends=%s\n",
        ev.CreatedAt, ev.BookingID, ev.ShowtimeID, ev.MovieID, ev.Theater, ev.SeatNumber, ev.UserID, ev.StartTime, ev.EndTime)
}
