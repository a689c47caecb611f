package loading

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndicator(t *testing.T) {
	var changes []bool
	ind := New(func(v bool) { changes = append(changes, v) })

	ind.Show("dashboard")
	ind.Show("tickets")
	assert.True(t, ind.Visible())

	ind.Hide("dashboard")
	assert.True(t, ind.Visible(), "tickets still pending")
	assert.Equal(t, []string{"tickets"}, ind.Pending())

	ind.Hide("unknown")
	assert.True(t, ind.Visible())

	ind.Hide("tickets")
	assert.False(t, ind.Visible())

	assert.Equal(t, []bool{true, false}, changes)
}

func TestIndicator_SameKeyTwice(t *testing.T) {
	ind := New(nil)

	ind.Show("tickets")
	ind.Show("tickets")

	ind.Hide("tickets")
	assert.True(t, ind.Visible())

	ind.Hide("tickets")
	assert.False(t, ind.Visible())

	ind.Hide("tickets")
	assert.False(t, ind.Visible())
}

func TestIndicator_Concurrent(t *testing.T) {
	ind := New(nil)

	var wg sync.WaitGroup
	for _, key := range []string{"searches", "clicks", "users", "tickets"} {
		for n := 0; n < 25; n++ {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				ind.Show(key)
				ind.Hide(key)
			}(key)
		}
	}
	wg.Wait()

	assert.False(t, ind.Visible())
	assert.Empty(t, ind.Pending())
}

func TestIndicator_Reset(t *testing.T) {
	var changes []bool
	ind := New(func(v bool) { changes = append(changes, v) })

	ind.Show("users")
	ind.Reset()
	ind.Reset()

	assert.False(t, ind.Visible())
	assert.Equal(t, []bool{true, false}, changes)
}

func TestIndicator_ScreenMatchesStateWhenHideRacesShow(t *testing.T) {
	var (
		mu     sync.Mutex
		screen bool
	)

	parked := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	ind := New(func(v bool) {
		if !v {
			once.Do(func() {
				close(parked)
				<-release
			})
		}
		mu.Lock()
		screen = v
		mu.Unlock()
	})

	ind.Show("dashboard")

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		ind.Hide("dashboard")
	}()
	<-parked

	go func() {
		defer wg.Done()
		ind.Show("tickets")
	}()

	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, []string{"tickets"}, ind.Pending())
	assert.True(t, ind.Visible())
	assert.Equal(t, ind.Visible(), screen)
}
