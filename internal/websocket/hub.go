package websocket

import (
	"context"
	"sync"
)

type opKind int

const (
	opRegister opKind = iota
	opUnregister
	opSubscribe
	opUnsubscribe
)

type hubOp struct {
	kind     opKind
	client   *Client
	channels []string
}

// Hub tracks viewer connections and the channels they follow.
// Registration and subscription changes are applied in the order they are requested.
type Hub struct {
	mu sync.RWMutex

	clients  map[string]*Client
	channels map[string]map[*Client]struct{}

	ops chan hubOp
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		channels: make(map[string]map[*Client]struct{}),
		ops:      make(chan hubOp, 512),
	}
}

// Run applies registrations and subscriptions until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-h.ops:
			switch op.kind {
			case opRegister:
				h.addClient(op.client)
				for _, ch := range op.channels {
					h.subscribeToChannel(op.client, ch)
				}
			case opUnregister:
				h.removeClient(op.client)
			case opSubscribe:
				for _, ch := range op.channels {
					h.subscribeToChannel(op.client, ch)
				}
			case opUnsubscribe:
				for _, ch := range op.channels {
					h.unsubscribeFromChannel(op.client, ch)
				}
			}
		}
	}
}

// Register adds a client, already subscribed to channels.
func (h *Hub) Register(client *Client, channels ...string) {
	h.ops <- hubOp{kind: opRegister, client: client, channels: channels}
}

func (h *Hub) Unregister(client *Client) {
	h.ops <- hubOp{kind: opUnregister, client: client}
}

func (h *Hub) Subscribe(client *Client, channel string) {
	h.ops <- hubOp{kind: opSubscribe, client: client, channels: []string{channel}}
}

func (h *Hub) Unsubscribe(client *Client, channel string) {
	h.ops <- hubOp{kind: opUnsubscribe, client: client, channels: []string{channel}}
}

// Broadcast queues payload for every client subscribed to channel.
func (h *Hub) Broadcast(channel string, payload []byte) {
	h.mu.RLock()
	for c := range h.channels[channel] {
		c.SendMessage(payload)
	}
	h.mu.RUnlock()
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) GetChannelSubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
}

// removeClient drops the client from every channel and closes its Send queue.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	for _, channel := range client.GetChannels() {
		if subscribers, ok := h.channels[channel]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.channels, channel)
			}
		}
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) subscribeToChannel(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[*Client]struct{})
	}
	h.channels[channel][client] = struct{}{}
	client.Subscribe(channel)
}

func (h *Hub) unsubscribeFromChannel(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subscribers, ok := h.channels[channel]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.channels, channel)
		}
	}
	client.Unsubscribe(channel)
}
