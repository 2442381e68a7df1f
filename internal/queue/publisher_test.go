package queue

import (
    "context"
    "errors"
    "net"
    "testing"
    "time"

    "github.com/rs/zerolog"
)

// silentBroker accepts TCP connections and never answers the AMQP handshake.
func silentBroker(t *testing.T) string {
    t.Helper()
    ln, err := net.Listen("tcp", "127.0.0.1:0")
    if err != nil {
        t.Fatalf("listen: %v", err)
    }
    t.Cleanup(func() { _ = ln.Close() })
    go func() {
        var conns []net.Conn
        defer func() {
            for _, c := range conns {
                _ = c.Close()
            }
        }()
        for {
            conn, err := ln.Accept()
            if err != nil {
                return
            }
            conns = append(conns, conn)
        }
    }()
    return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

// closedPort returns a URL whose port refuses connections.
func closedPort(t *testing.T) string {
    t.Helper()
    ln, err := net.Listen("tcp", "127.0.0.1:0")
    if err != nil {
        t.Fatalf("listen: %v", err)
    }
    addr := ln.Addr().String()
    _ = ln.Close()
    return "amqp://guest:guest@" + addr + "/"
}

func testPublisher(url string) *Publisher {
    p := NewPublisher(url, zerolog.Nop())
    p.timeout = 200 * time.Millisecond
    return p
}

func TestSendFailsOnUnreachableBroker(t *testing.T) {
    tests := []struct {
        name string
        url  func(*testing.T) string
    }{
        {"silent", silentBroker},
        {"refused", closedPort},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            p := testPublisher(tt.url(t))
            begin := time.Now()
            err := p.send(context.Background(), BookingCreatedEvent{BookingID: "b-1"})
            if err == nil {
                t.Fatal("expected dial error")
            }
            if d := time.Since(begin); d > 2*time.Second {
                t.Errorf("send took %v", d)
            }
            if p.conn != nil || p.ch != nil {
                t.Error("failed dial left a connection behind")
            }
        })
    }
}

func TestPublishDoesNotWaitForBroker(t *testing.T) {
    p := testPublisher(silentBroker(t))
    p.events = make(chan BookingCreatedEvent, 1)

    begin := time.Now()
    if err := p.PublishBookingCreated(context.Background(), BookingCreatedEvent{BookingID: "a"}); err != nil {
        t.Fatalf("first publish: %v", err)
    }
    err := p.PublishBookingCreated(context.Background(), BookingCreatedEvent{BookingID: "b"})
    if !errors.Is(err, ErrBufferFull) {
        t.Fatalf("got %v, want ErrBufferFull", err)
    }
    if d := time.Since(begin); d > 50*time.Millisecond {
        t.Errorf("publish took %v", d)
    }
}

func TestRunDropsFailedEventsAndStops(t *testing.T) {
    p := testPublisher(closedPort(t))
    ctx, cancel := context.WithCancel(context.Background())
    done := make(chan struct{})
    go func() {
        p.Run(ctx)
        close(done)
    }()

    for _, id := range []string{"a", "b", "c"} {
        if err := p.PublishBookingCreated(ctx, BookingCreatedEvent{BookingID: id}); err != nil {
            t.Fatalf("publish %s: %v", id, err)
        }
    }
    deadline := time.Now().Add(2 * time.Second)
    for len(p.events) > 0 && time.Now().Before(deadline) {
        time.Sleep(10 * time.Millisecond)
    }
    if n := len(p.events); n != 0 {
        t.Fatalf("%d events still queued", n)
    }

    cancel()
    select {
    case <-done:
    case <-time.After(2 * time.Second):
        t.Fatal("Run did not return after cancel")
    }
}
