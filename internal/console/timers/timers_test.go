package timers

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitTickers(t *testing.T, clock *clockwork.FakeClock, n int) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, clock.BlockUntilContext(ctx, n))
}

func recv(t *testing.T, ch <-chan string) string {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
		return ""
	}
}

func assertQuiet(t *testing.T, ch <-chan string) {
	t.Helper()

	select {
	case v := <-ch:
		t.Fatalf("unexpected fire from %q", v)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestStart_ReplacesExistingName(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := New(clock)
	defer r.StopAll()

	fired := make(chan string, 10)

	r.Start("tickets", 30*time.Second, func() { fired <- "old" })
	r.Start("tickets", 10*time.Second, func() { fired <- "new" })

	waitTickers(t, clock, 1)

	interval, ok := r.Interval("tickets")
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, interval)

	for i := 0; i < 3; i++ {
		clock.Advance(10 * time.Second)
		assert.Equal(t, "new", recv(t, fired))
		waitTickers(t, clock, 1)
	}

	assertQuiet(t, fired)
	assert.Equal(t, []string{"tickets"}, r.Names())
}

func TestIndependentIntervals(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := New(clock)
	defer r.StopAll()

	fired := make(chan string, 10)

	r.Start("dashboard", 20*time.Second, func() { fired <- "dashboard" })
	r.Start("tickets", 30*time.Second, func() { fired <- "tickets" })
	waitTickers(t, clock, 2)

	clock.Advance(20 * time.Second)
	assert.Equal(t, "dashboard", recv(t, fired))
	waitTickers(t, clock, 2)

	clock.Advance(10 * time.Second)
	assert.Equal(t, "tickets", recv(t, fired))
	assertQuiet(t, fired)
}

func TestSuspendResume(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := New(clock)
	defer r.StopAll()

	fired := make(chan string, 10)

	r.Start("lists", 10*time.Second, func() { fired <- "lists" })
	waitTickers(t, clock, 1)

	r.Suspend()
	assert.True(t, r.Suspended())

	clock.Advance(time.Minute)
	assertQuiet(t, fired)

	// started while hidden, runs only after resume
	r.Start("dashboard", 10*time.Second, func() { fired <- "dashboard" })
	clock.Advance(time.Minute)
	assertQuiet(t, fired)

	r.Resume()
	waitTickers(t, clock, 2)

	clock.Advance(10 * time.Second)
	got := []string{recv(t, fired), recv(t, fired)}
	assert.ElementsMatch(t, []string{"lists", "dashboard"}, got)
}

func TestStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := New(clock)

	fired := make(chan string, 1)

	r.Start("users", 5*time.Second, func() { fired <- "users" })
	waitTickers(t, clock, 1)

	r.Stop("users")
	clock.Advance(10 * time.Second)
	assertQuiet(t, fired)

	_, ok := r.Interval("users")
	assert.False(t, ok)
	assert.Empty(t, r.Names())
}
