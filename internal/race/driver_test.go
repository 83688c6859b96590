package race

import (
	"sync"
	"testing"
	"time"

	"backend-routerace/internal/shared/geo"
	"backend-routerace/internal/track"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func driverTrack(t *testing.T) *track.Track {
	t.Helper()
	tr, err := track.New(
		[]geo.Point{{Lon: 0, Lat: 0}, {Lon: 0, Lat: 0.009}},
		geo.Point{Lon: 0, Lat: 0.009},
	)
	require.NoError(t, err)
	return tr
}

func TestSimDriverProducesOrderedFixes(t *testing.T) {
	tr := driverTrack(t)

	var mu sync.Mutex
	var fixes []Fix
	arrived := make(chan struct{})
	submit := func(f Fix) {
		mu.Lock()
		fixes = append(fixes, f)
		mu.Unlock()
		if f.Lat >= 0.009-1e-9 {
			select {
			case arrived <- struct{}{}:
			default:
			}
		}
	}

	// fast enough to traverse the whole route within the test
	d := NewSimDriver("bot1", tr, 5, 2*time.Millisecond, 0, submit)
	d.Start()
	defer d.Stop()

	select {
	case <-arrived:
	case <-time.After(2 * time.Second):
		t.Fatalf("driver never reached the end of the track")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, fixes)
	for i, f := range fixes {
		assert.Equal(t, ParticipantID("bot1"), f.Participant)
		assert.Equal(t, uint64(i+1), f.Sequence)
		if i > 0 {
			assert.GreaterOrEqual(t, f.Lat, fixes[i-1].Lat)
		}
		assert.Zero(t, f.Lon)
	}
}

func TestSimDriverStopIsSynchronous(t *testing.T) {
	tr := driverTrack(t)

	var mu sync.Mutex
	count := 0
	d := NewSimDriver("bot1", tr, 0.001, 2*time.Millisecond, 0, func(Fix) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	d.Start()
	time.Sleep(20 * time.Millisecond)
	d.Stop()

	mu.Lock()
	after := count
	mu.Unlock()
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, after, count, "no fixes after Stop returns")

	// Stop is safe to call again
	d.Stop()
}

func TestSimDriverStartsFromProgress(t *testing.T) {
	tr := driverTrack(t)

	first := make(chan Fix, 1)
	d := NewSimDriver("bot1", tr, 0.0001, 2*time.Millisecond, 0.5, func(f Fix) {
		select {
		case first <- f:
		default:
		}
	})
	d.Start()
	defer d.Stop()

	select {
	case f := <-first:
		assert.Greater(t, f.Lat, 0.004)
	case <-time.After(time.Second):
		t.Fatalf("no fix produced")
	}
}

func TestGPSDriverIsInert(t *testing.T) {
	d := NewGPSDriver("user")
	assert.Equal(t, DriverGPS, d.Kind())
	d.Start()
	d.Stop()
}

func TestSimDriverKind(t *testing.T) {
	d := NewSimDriver("bot1", driverTrack(t), 1, time.Millisecond, 0, func(Fix) {})
	assert.Equal(t, DriverSimulated, d.Kind())
	d.Start()
	d.Stop()
}
