// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package driver

import (
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestNetworkReceivesEventOverWebsocket(t *testing.T) {
	require := require.New(t)
	n := NewNetwork()
	require.NoError(n.Listen("127.0.0.1:0"))
	defer n.Close()

	addr := n.listener.Addr().String()
	wsURL := fmt.Sprintf("ws://%s/wormhole", addr)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(err)
	defer conn.Close()

	require.NoError(conn.WriteJSON(wireMessage{Event: &Event{Tag: 0, Source: 1, Target: 2, Payload: 3.5}}))

	require.Eventually(func() bool {
		return n.PendingEnergy() == 3.5
	}, time.Second, 10*time.Millisecond)

	emit, pulse := n.Sync(1, nil)
	require.Len(emit, 1)
	require.Equal(3.5, emit[0].Payload)
	require.Equal(PulseNone, pulse.Kind)
	require.Equal(0.0, n.PendingEnergy())
}
