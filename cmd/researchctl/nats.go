package main

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	natsFlushTimeout = 10 * time.Second
	natsDrainTimeout = 30 * time.Second
)

// connectNATS dials url. The returned channel is closed once the connection
// has fully closed, which after Drain means every pending handler returned.
func connectNATS(url, name string) (*nats.Conn, <-chan struct{}, error) {
	closed := make(chan struct{})
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.DrainTimeout(natsDrainTimeout),
		nats.ClosedHandler(func(*nats.Conn) { close(closed) }),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, closed, nil
}

type drainer interface {
	Drain() error
}

// drainAndWait starts an asynchronous drain and blocks until the connection
// reports closed.
func drainAndWait(d drainer, closed <-chan struct{}) error {
	if err := d.Drain(); err != nil {
		return fmt.Errorf("nats drain: %w", err)
	}
	<-closed
	return nil
}
