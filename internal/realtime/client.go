package realtime

import "sync"

// client is one connected dashboard. send is never closed by the hub so
// concurrent broadcasters cannot panic; done signals shutdown instead.
type client struct {
	id   string
	send chan Event

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(id string, queueSize int) *client {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &client{
		id:   id,
		send: make(chan Event, queueSize),
		done: make(chan struct{}),
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
