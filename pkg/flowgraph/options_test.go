package flowgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randalmurphal/argus/pkg/flowgraph/event"
	"github.com/randalmurphal/argus/pkg/flowgraph/snapshot"
)

func TestDefaultRunConfig(t *testing.T) {
	cfg := defaultRunConfig()

	assert.Equal(t, 1000, cfg.maxIterations)
	assert.Equal(t, "flowgraph", cfg.graphName)
	assert.Empty(t, cfg.runID)
	assert.Nil(t, cfg.logger)
	assert.Nil(t, cfg.bus)
	assert.Nil(t, cfg.snapshots)
	assert.False(t, cfg.tracingEnabled)
}

func TestWithMaxIterations(t *testing.T) {
	tests := []struct {
		name  string
		value int
		want  int
	}{
		{"minimum valid", 1, 1},
		{"typical value", 100, 100},
		{"zero keeps default", 0, 1000},
		{"negative keeps default", -5, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultRunConfig()
			WithMaxIterations(tt.value)(&cfg)
			assert.Equal(t, tt.want, cfg.maxIterations)
		})
	}
}

func TestWithGraphName_IgnoresEmpty(t *testing.T) {
	cfg := defaultRunConfig()
	WithGraphName("")(&cfg)
	assert.Equal(t, "flowgraph", cfg.graphName)

	WithGraphName("argus")(&cfg)
	assert.Equal(t, "argus", cfg.graphName)
}

func TestWithRunID(t *testing.T) {
	cfg := defaultRunConfig()
	WithRunID("run-9")(&cfg)
	assert.Equal(t, "run-9", cfg.runID)
}

func TestWithEventBusAndSnapshots(t *testing.T) {
	bus := event.NewBus(event.DefaultBusConfig)
	defer bus.Close()
	store := snapshot.NewMemoryStore()

	cfg := defaultRunConfig()
	WithEventBus(bus)(&cfg)
	WithSnapshots(store)(&cfg)

	assert.Same(t, bus, cfg.bus)
	assert.Same(t, store, cfg.snapshots)
}
