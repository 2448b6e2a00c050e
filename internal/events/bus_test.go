package events

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusPublishReachesSubscriber(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe("run-1", 8)
	defer bus.Unsubscribe("run-1", ch)

	bus.Publish("run-1", Event{Type: TypeStepStarted, Agent: "codex", Step: 1})

	evt := <-ch
	assert.Equal(t, "run-1", evt.RunID)
	assert.Equal(t, TypeStepStarted, evt.Type)
	assert.Equal(t, "codex", evt.Agent)
	assert.False(t, evt.Timestamp.IsZero())
}

func TestBusIsolatesRuns(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe("run-a", 8)
	defer bus.Unsubscribe("run-a", ch)

	bus.Publish("run-b", Event{Type: TypeStepStarted})

	select {
	case evt := <-ch:
		t.Fatalf("unexpected event for other run: %+v", evt)
	default:
	}
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe("run-1", 1)
	defer bus.Unsubscribe("run-1", ch)

	bus.Publish("run-1", Event{Type: TypeStepStarted, Step: 1})
	bus.Publish("run-1", Event{Type: TypeStepFinished, Step: 1})

	first := <-ch
	assert.Equal(t, TypeStepStarted, first.Type)
	select {
	case evt := <-ch:
		t.Fatalf("second event should have been dropped, got %+v", evt)
	default:
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe("run-1", 1)
	bus.Unsubscribe("run-1", ch)

	_, open := <-ch
	assert.False(t, open)

	// publishing after the last unsubscribe is a no-op
	bus.Publish("run-1", Event{Type: TypeRunFinished})
}

func TestBusWildcardSubscriberSeesEveryRun(t *testing.T) {
	bus := NewBus()
	ch := bus.SubscribeAny(8)
	defer bus.UnsubscribeAny(ch)

	bus.Publish("run-a", Event{Type: TypeRunStarted})
	bus.Publish("run-b", Event{Type: TypeRunStarted})

	first := <-ch
	second := <-ch
	assert.Equal(t, "run-a", first.RunID)
	assert.Equal(t, "run-b", second.RunID)
}

func TestFileSinkWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "events.jsonl")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	sink.Publish("run-1", Event{Type: TypeStepStarted, Agent: "gemini", Iteration: 2})
	sink.Publish("run-1", Event{Type: TypeStepFinished, Agent: "gemini", Iteration: 2})
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var evt Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &evt))
		lines = append(lines, evt)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, TypeStepStarted, lines[0].Type)
	assert.Equal(t, "run-1", lines[1].RunID)
	assert.Equal(t, 2, lines[1].Iteration)
}
