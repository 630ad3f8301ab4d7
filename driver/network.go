// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package driver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/ethcocoder/universos/ids"
)

// wireMessage is the wormhole driver's wire format: exactly one of
// Event or SyncState is set.
type wireMessage struct {
	Event     *Event        `json:"event,omitempty"`
	SyncState *UniverseView `json:"sync_state,omitempty"`
}

// Network is the "wormhole" driver: a websocket peer link that carries
// events to and from a remote UniverOS instance, per spec §6. It runs
// its accept loop and per-connection readers on internal goroutines
// managed by an errgroup.Group and syncs with the kernel only through
// Sync/HandleEvent, never directly mutating kernel state from those
// goroutines.
type Network struct {
	mu       sync.Mutex
	conns    map[ids.UniverseID]*websocket.Conn
	inbox    []Event
	upgrader websocket.Upgrader
	group    *errgroup.Group
	ctx      context.Context
	cancel   context.CancelFunc
	listener net.Listener
	pending  float64
}

// NewNetwork returns a Network driver bound to no listener yet; call
// Listen to accept inbound peer connections on addr.
func NewNetwork() *Network {
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	return &Network{
		conns:  make(map[ids.UniverseID]*websocket.Conn),
		group:  group,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (n *Network) Name() string { return "network" }

// Listen starts accepting inbound wormhole connections on addr. Each
// accepted connection's read loop runs on its own goroutine under n's
// errgroup and only ever appends to n.inbox under n.mu — it never
// calls back into kernel code directly.
func (n *Network) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("network: listen %s: %w", addr, err)
	}
	n.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/wormhole", func(w http.ResponseWriter, r *http.Request) {
		conn, err := n.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n.group.Go(func() error { return n.readLoop(conn) })
	})
	srv := &http.Server{Handler: mux}
	n.group.Go(func() error {
		err := srv.Serve(ln)
		if err != nil && n.ctx.Err() != nil {
			return nil // shutdown in progress, not a real failure
		}
		return err
	})
	return nil
}

func (n *Network) readLoop(conn *websocket.Conn) error {
	defer conn.Close()
	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return nil
		}
		if msg.Event != nil {
			n.mu.Lock()
			n.inbox = append(n.inbox, *msg.Event)
			n.pending += msg.Event.Payload
			n.mu.Unlock()
		}
	}
}

// Connect dials a remote wormhole endpoint identified with peer.
func (n *Network) Connect(peer ids.UniverseID, addr string) error {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return fmt.Errorf("network: dial %s: %w", addr, err)
	}
	n.mu.Lock()
	n.conns[peer] = conn
	n.mu.Unlock()
	n.group.Go(func() error { return n.readLoop(conn) })
	return nil
}

// Sync drains the inbox of events received from peers since the last
// tick and hands them to the kernel for routing.
func (n *Network) Sync(tick uint64, universes []UniverseView) (emit []Event, pulse Pulse) {
	n.mu.Lock()
	defer n.mu.Unlock()
	emit = n.inbox
	n.inbox = nil
	for _, ev := range emit {
		n.pending -= ev.Payload
	}
	return emit, Pulse{}
}

// HandleEvent forwards ev to its target peer's connection, if one is
// registered.
func (n *Network) HandleEvent(ev Event) {
	n.mu.Lock()
	conn, ok := n.conns[ev.Target]
	n.mu.Unlock()
	if !ok {
		return
	}
	_ = conn.WriteJSON(wireMessage{Event: &ev})
}

func (n *Network) PendingEnergy() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pending
}

// Close shuts down the listener and all peer connections, waiting for
// the internal goroutine group to drain.
func (n *Network) Close() error {
	n.cancel()
	if n.listener != nil {
		_ = n.listener.Close()
	}
	n.mu.Lock()
	for _, c := range n.conns {
		_ = c.Close()
	}
	n.mu.Unlock()
	return n.group.Wait()
}
