package shutdown

import (
	"context"
	"testing"
	"time"
)

func TestContextFollowsParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := Context(parent)
	defer stop()

	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled with parent")
	}
}

func TestContextStop(t *testing.T) {
	ctx, stop := Context(context.Background())
	if ctx.Err() != nil {
		t.Fatal("context cancelled before stop")
	}
	stop()
	if ctx.Err() == nil {
		t.Error("stop did not cancel the context")
	}
}

func TestSignalsListed(t *testing.T) {
	if len(signals) == 0 {
		t.Fatal("no termination signals configured")
	}
}
