/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mempubsub

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/fedipress/fedipress/pkg/lifecycle"
	"github.com/fedipress/fedipress/pkg/pubsub/spi"
)

func TestPubSub(t *testing.T) {
	p := New(DefaultConfig())
	require.NotNil(t, p)
	require.Equal(t, lifecycle.StateStarted, p.State())

	msgChan, err := p.Subscribe(context.Background(), "topic1")
	require.NoError(t, err)

	msg := message.NewMessage(uuid.NewString(), []byte("payload"))
	require.NoError(t, p.Publish("topic1", msg))

	select {
	case received := <-msgChan:
		require.Equal(t, msg.UUID, received.UUID)
		received.Ack()
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}

	require.NoError(t, p.Close())
	require.Equal(t, lifecycle.StateStopped, p.State())

	_, err = p.Subscribe(context.Background(), "topic1")
	require.ErrorIs(t, err, lifecycle.ErrNotStarted)

	require.ErrorIs(t, p.Publish("topic1", msg), lifecycle.ErrNotStarted)
}

func TestPubSub_Undeliverable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 100 * time.Millisecond

	p := New(cfg)

	undeliverableChan, err := p.Subscribe(context.Background(), spi.UndeliverableTopic)
	require.NoError(t, err)

	msgChan, err := p.Subscribe(context.Background(), "topic1")
	require.NoError(t, err)

	msg := message.NewMessage(uuid.NewString(), []byte("payload"))
	require.NoError(t, p.Publish("topic1", msg))

	select {
	case received := <-msgChan:
		received.Nack()
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}

	select {
	case received := <-undeliverableChan:
		require.Equal(t, msg.UUID, received.UUID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for undeliverable message")
	}

	require.NoError(t, p.Close())
}
