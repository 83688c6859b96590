package race

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"backend-routerace/internal/track"
)

// Driver is a fix source for one participant. Real GPS feeds and simulated
// racers both go through the same path: they produce Fixes, nothing more.
type Driver interface {
	Start()
	Stop()
	Kind() DriverKind
}

// SimDriver synthesizes fixes along a track at a fixed tick. Each tick it
// advances progress by speed * elapsed * jitter, converts that to a
// coordinate, and submits it as an ordinary Fix, so simulated racers are
// evaluated by exactly the same rules as real ones.
type SimDriver struct {
	participant ParticipantID
	track       *track.Track
	speed       float64
	tick        time.Duration
	submit      func(Fix)
	rng         *rand.Rand

	progress float64
	seq      uint64
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewSimDriver builds a driver advancing at the given fraction-of-route per
// second, starting from startProgress.
func NewSimDriver(participant ParticipantID, tr *track.Track, speed float64, tick time.Duration, startProgress float64, submit func(Fix)) *SimDriver {
	if tick <= 0 {
		tick = 200 * time.Millisecond
	}
	return &SimDriver{
		participant: participant,
		track:       tr,
		speed:       speed,
		tick:        tick,
		submit:      submit,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		progress:    startProgress,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func (d *SimDriver) Kind() DriverKind { return DriverSimulated }

func (d *SimDriver) Start() {
	go d.run()
}

// Stop halts the tick loop and waits for it to exit, so no fix is produced
// after Stop returns.
func (d *SimDriver) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
	<-d.done
}

func (d *SimDriver) run() {
	defer close(d.done)

	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-d.stop:
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last).Seconds()
			last = now

			// jitter in [0.9, 1.1] keeps bots out of lockstep
			jitter := 0.9 + 0.2*d.rng.Float64()
			d.progress = math.Min(1, d.progress+d.speed*elapsed*jitter)

			p := d.track.CoordinateAt(d.progress)
			d.seq++
			d.submit(Fix{
				Participant:  d.participant,
				Lon:          p.Lon,
				Lat:          p.Lat,
				AtUnixMillis: now.UnixMilli(),
				Sequence:     d.seq,
			})

			if d.progress >= 1 {
				return
			}
		}
	}
}

// GPSDriver marks a participant as fed by an external position source. The
// fixes themselves arrive through the session's submit path; the driver only
// exists so the session can enforce source exclusivity.
type GPSDriver struct {
	participant ParticipantID
}

func NewGPSDriver(participant ParticipantID) *GPSDriver {
	return &GPSDriver{participant: participant}
}

func (d *GPSDriver) Kind() DriverKind { return DriverGPS }
func (d *GPSDriver) Start()           {}
func (d *GPSDriver) Stop()            {}
