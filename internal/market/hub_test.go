package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHub_PublishDelivers(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe()
	defer sub.Close()

	h.Publish([]string{"bitcoin"})

	select {
	case ids := <-sub.C:
		require.Equal(t, []string{"bitcoin"}, ids)
	case <-time.After(time.Second):
		t.Fatal("expected snapshot")
	}
}

func TestHub_CoalescesToLatest(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe()
	defer sub.Close()

	h.Publish([]string{"bitcoin"})
	h.Publish([]string{"bitcoin", "ethereum"})
	h.Publish([]string{"ethereum"})

	require.Equal(t, []string{"ethereum"}, <-sub.C)
	select {
	case ids := <-sub.C:
		t.Fatalf("expected no further snapshot, got %v", ids)
	default:
	}
}

func TestHub_SnapshotsAreCopies(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe()
	defer sub.Close()

	ids := []string{"bitcoin"}
	h.Publish(ids)
	ids[0] = "mutated"

	require.Equal(t, []string{"bitcoin"}, <-sub.C)
}

func TestHub_SubscriptionClose(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe()
	require.Equal(t, 1, h.Subscribers())

	sub.Close()
	sub.Close()
	require.Equal(t, 0, h.Subscribers())

	_, ok := <-sub.C
	require.False(t, ok, "channel should be closed")

	h.Publish([]string{"bitcoin"})
}

func TestHub_Close(t *testing.T) {
	h := NewHub()
	a := h.Subscribe()
	b := h.Subscribe()

	h.Close()
	_, okA := <-a.C
	_, okB := <-b.C
	require.False(t, okA)
	require.False(t, okB)

	late := h.Subscribe()
	_, ok := <-late.C
	require.False(t, ok, "subscribing to a closed hub yields a closed channel")

	h.Publish([]string{"bitcoin"})
	a.Close()
}
