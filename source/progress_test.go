package source

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressFields(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	pr := NewProgress(start)

	fields := pr.Fields(start.Add(time.Second), 1<<20, 1, 2)
	assert.Equal(t, uint64(1<<20), fields["samples"])
	assert.Equal(t, 2.0, fields["mb"])
	assert.Equal(t, 50, fields["queue_pct"])
	assert.Equal(t, 2.0, fields["avg_mbps"])
	assert.Equal(t, 2.0, fields["last_mbps"])

	fields = pr.Fields(start.Add(2*time.Second), 3<<20, 2, 2)
	assert.Equal(t, 6.0, fields["mb"])
	assert.Equal(t, 100, fields["queue_pct"])
	assert.Equal(t, 3.0, fields["avg_mbps"])
	assert.Equal(t, 4.0, fields["last_mbps"])

	// No time elapsed since the last report.
	fields = pr.Fields(start.Add(2*time.Second), 3<<20, 0, 2)
	assert.Equal(t, 0.0, fields["last_mbps"])
	assert.Equal(t, 0, fields["queue_pct"])
}

func TestPumpReportsProgress(t *testing.T) {
	src := &blockingSource{make(chan struct{})}
	log, hook := test.NewNullLogger()

	p := NewPump(src, 16, 1, log)
	p.SetProgress(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		for _, entry := range hook.AllEntries() {
			if entry.Message == "progress" {
				return true
			}
		}
		return false
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	assert.Equal(t, context.Canceled, <-done)

	entry := hook.LastEntry()
	assert.Equal(t, uint64(0), entry.Data["samples"])
	assert.Equal(t, 0, entry.Data["queue_pct"])
}
