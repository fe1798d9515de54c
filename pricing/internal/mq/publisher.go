package mq

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"campaign_pricing/pricing/internal/events"

	zmq "github.com/pebbe/zmq4"
)

// Publisher broadcasts cart lifecycle events on a ZMQ PUB socket.
type Publisher struct {
	mu     sync.Mutex
	socket *zmq.Socket
	logger *slog.Logger
}

func NewPublisher(port int, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sock, err := zmq.NewSocket(zmq.Type(zmq.PUB))
	if err != nil {
		return nil, err
	}
	addr := "tcp://*:" + strconv.Itoa(port)
	if err := sock.Bind(addr); err != nil {
		sock.Close()
		return nil, err
	}
	return &Publisher{socket: sock, logger: logger.With("component", "mq")}, nil
}

// Publish sends one event. Subscribers filter on the event name frame.
func (p *Publisher) Publish(e events.Event) error {
	payload := EncodeEvent(e, time.Now())

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.socket.SendMessage(e.Name, payload)
	return err
}

// Notify implements events.Notifier. Send failures are logged and dropped.
func (p *Publisher) Notify(_ context.Context, e events.Event) {
	if err := p.Publish(e); err != nil {
		p.logger.Warn("publish failed", "event", e.Name, "error", err)
	}
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.socket.Close()
}
