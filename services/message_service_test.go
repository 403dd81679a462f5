package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndThreadSymmetry(t *testing.T) {
	store := newTestStore(t)
	svc := NewMessageService(store, nil)
	ctx := context.Background()

	alice := student("alice", "inst_a")
	bob := student("bob", "inst_a")

	_, err := svc.Send(ctx, alice, "bob", "hi bob")
	require.NoError(t, err)
	// Timestamps have millisecond granularity; keep the ordering unambiguous.
	time.Sleep(2 * time.Millisecond)
	_, err = svc.Send(ctx, bob, "alice", "hi alice")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = svc.Send(ctx, alice, "carol", "hi carol")
	require.NoError(t, err)

	// Both participants see the identical conversation, oldest first.
	fromAlice, err := svc.Thread(ctx, "alice", "bob")
	require.NoError(t, err)
	fromBob, err := svc.Thread(ctx, "bob", "alice")
	require.NoError(t, err)

	require.Len(t, fromAlice, 2)
	assert.Equal(t, fromAlice, fromBob)
	assert.Equal(t, "hi bob", fromAlice[0].Text)
	assert.Equal(t, "hi alice", fromAlice[1].Text)
	assert.LessOrEqual(t, fromAlice[0].Timestamp, fromAlice[1].Timestamp)

	// Participants are derived at write time.
	assert.ElementsMatch(t, []string{"alice", "bob"}, fromAlice[0].Participants)
}

func TestSendValidation(t *testing.T) {
	svc := NewMessageService(newTestStore(t), nil)
	ctx := context.Background()
	alice := student("alice", "inst_a")

	_, err := svc.Send(ctx, alice, "alice", "note to self")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Send(ctx, alice, "bob", "   ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Send(ctx, nil, "bob", "hi")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestConversationsListsDistinctCounterparts(t *testing.T) {
	store := newTestStore(t)
	svc := NewMessageService(store, nil)
	ctx := context.Background()

	alice := student("alice", "inst_a")
	bob := student("bob", "inst_a")

	_, err := svc.Send(ctx, alice, "bob", "one")
	require.NoError(t, err)
	_, err = svc.Send(ctx, alice, "bob", "two")
	require.NoError(t, err)
	_, err = svc.Send(ctx, bob, "alice", "three")
	require.NoError(t, err)
	_, err = svc.Send(ctx, alice, "carol", "four")
	require.NoError(t, err)

	counterparts, err := svc.Conversations(ctx, "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "carol"}, counterparts)

	bobSide, err := svc.Conversations(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, bobSide)
}

func TestSubscribeWithoutPushBackend(t *testing.T) {
	svc := NewMessageService(newTestStore(t), nil)

	assert.Nil(t, svc.Subscribe(context.Background(), "alice"))
}
