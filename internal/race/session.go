package race

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"sync"
	"time"

	"backend-routerace/internal/shared/geo"
	"backend-routerace/internal/track"
)

// Publisher fans race events out to observers. Implemented by stream.Hub.
// Clear forgets a race's replay state; Drop discards the race entirely,
// subscribers included.
type Publisher interface {
	Publish(raceID, kind, participant string, payload []byte)
	Clear(raceID string)
	Drop(raceID string)
}

// Recorder persists final standings when a race ends. Implemented by
// results.Service.
type Recorder interface {
	RecordResult(ctx context.Context, res Result) error
}

// inboundBuffer bounds the fix queue; drivers never block on the session, a
// full queue degrades to dropped fixes.
const inboundBuffer = 256

type driverSlot struct {
	kind   DriverKind
	speed  float64
	active Driver
}

// Session owns all participant state for one race. Drivers and HTTP handlers
// enqueue fixes; a single actor goroutine drains the queue, so every mutation
// and every ranking recompute happens on one goroutine while holding mu.
type Session struct {
	ID       string
	settings Settings
	pub      Publisher
	rec      Recorder
	now      func() time.Time
	rng      *rand.Rand

	mu          sync.Mutex
	phase       Phase
	tracks      map[ParticipantID]*track.Track
	states      map[ParticipantID]*State
	drivers     map[ParticipantID]*driverSlot
	lastOrder   []ParticipantID
	finishCount int

	inbound chan Fix
	stop    chan struct{}
}

// NewSession builds an idle session for the given participants. Participants
// with no declared driver kind default to GPS.
func NewSession(id string, specs []ParticipantSpec, settings Settings, pub Publisher, rec Recorder) (*Session, error) {
	if len(specs) == 0 {
		return nil, ErrNoParticipants
	}

	s := &Session{
		ID:       id,
		settings: settings,
		pub:      pub,
		rec:      rec,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		phase:    PhaseIdle,
		tracks:   map[ParticipantID]*track.Track{},
		states:   map[ParticipantID]*State{},
		drivers:  map[ParticipantID]*driverSlot{},
	}

	for _, spec := range specs {
		if _, dup := s.states[spec.ID]; dup {
			return nil, ErrDuplicateParticipant
		}
		kind := spec.Driver
		if kind == DriverNone {
			kind = DriverGPS
		}
		s.states[spec.ID] = &State{ID: spec.ID}
		s.drivers[spec.ID] = &driverSlot{kind: kind, speed: spec.Speed}
	}
	return s, nil
}

// AssignRoute gives a participant its route. An invalid polyline leaves any
// prior assignment in place. Reassigning mid-race resets that participant.
func (s *Session) AssignRoute(id ParticipantID, line []geo.Point, destination geo.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[id]
	if !ok {
		return ErrUnknownParticipant
	}
	if s.phase == PhaseEnded {
		return ErrSessionEnded
	}

	tr, err := track.New(line, destination)
	if err != nil {
		return err
	}

	s.tracks[id] = tr
	*st = State{ID: id}

	// a driver already racing the old polyline must not carry its track or
	// progress onto the new one
	if s.phase == PhaseRunning {
		s.startDriverLocked(id, s.drivers[id])
	}
	return nil
}

// SetDriver selects the fix source for a participant. While the race runs, a
// source of the other kind must be stopped first.
func (s *Session) SetDriver(id ParticipantID, kind DriverKind, speed float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.drivers[id]
	if !ok {
		return ErrUnknownParticipant
	}
	if s.phase == PhaseEnded {
		return ErrSessionEnded
	}
	if slot.kind == kind {
		slot.speed = speed
		return nil
	}
	if s.phase == PhaseRunning && slot.kind != DriverNone {
		return ErrDriverConflict
	}

	slot.kind = kind
	slot.speed = speed
	if s.phase == PhaseRunning {
		s.startDriverLocked(id, slot)
	}
	return nil
}

// StopDriver detaches and stops a participant's fix source.
func (s *Session) StopDriver(id ParticipantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.drivers[id]
	if !ok {
		return ErrUnknownParticipant
	}
	s.stopSlotLocked(slot)
	slot.kind = DriverNone
	return nil
}

// Start moves the session to Running and launches one driver per participant.
// Every participant must have a route assigned.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseRunning:
		return ErrAlreadyStarted
	case PhaseEnded:
		return ErrSessionEnded
	}
	for id := range s.states {
		if s.tracks[id] == nil {
			return ErrIncompleteAssignment
		}
	}

	s.inbound = make(chan Fix, inboundBuffer)
	s.stop = make(chan struct{})
	s.phase = PhaseRunning
	go s.run(s.inbound, s.stop)

	for id, slot := range s.drivers {
		s.startDriverLocked(id, slot)
	}
	return nil
}

// Submit enqueues a fix for processing. Fixes for sessions that are not
// running are simply not observable; a full queue drops the fix.
func (s *Session) Submit(fix Fix) {
	s.mu.Lock()
	running := s.phase == PhaseRunning
	inbound := s.inbound
	s.mu.Unlock()
	if !running {
		return
	}

	select {
	case inbound <- fix:
	default:
	}
}

// End stops all drivers and closes the race with the given reason.
func (s *Session) End(reason EndReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRunning {
		return ErrSessionEnded
	}
	s.endLocked(reason)
	return nil
}

// Reset returns every participant to its initial state, stops all drivers,
// and moves the session back to Idle. Route assignments survive.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseRunning {
		close(s.stop)
	}
	for _, slot := range s.drivers {
		s.stopSlotLocked(slot)
	}
	for id, st := range s.states {
		*st = State{ID: id}
	}
	s.lastOrder = nil
	s.finishCount = 0
	s.phase = PhaseIdle

	if s.pub != nil {
		s.pub.Clear(s.ID)
	}
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Snapshot returns a copy of every participant state, ordered by the current
// ranking.
func (s *Session) Snapshot() []State {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := Ranking(s.stateSliceLocked())
	out := make([]State, 0, len(order))
	for _, id := range order {
		out = append(out, *s.states[id])
	}
	return out
}

// RankingNow returns the current participant order.
func (s *Session) RankingNow() []ParticipantID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Ranking(s.stateSliceLocked())
}

// run is the session actor: it drains the fix queue and processes each fix to
// completion before taking the next.
func (s *Session) run(inbound <-chan Fix, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case fix := <-inbound:
			s.apply(fix)
		}
	}
}

// apply runs the per-fix state machine: sequence gate, projection, off-route
// transitions, arrival check, ranking recompute.
func (s *Session) apply(fix Fix) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRunning {
		return
	}
	st, ok := s.states[fix.Participant]
	if !ok {
		return
	}
	tr := s.tracks[fix.Participant]
	if tr == nil {
		return
	}
	if st.Arrived {
		return
	}
	if st.HasFix && fix.Sequence <= st.LastFix.Sequence {
		// stale or duplicate delivery
		return
	}

	here := geo.Point{Lon: fix.Lon, Lat: fix.Lat}
	pos := tr.ProgressOf(here)
	st.LastFix = fix
	st.HasFix = true
	st.DistanceFromRouteM = pos.DistanceFromRouteM

	if off := pos.DistanceFromRouteM > s.settings.OffRouteThresholdM; off != st.OffRoute {
		st.OffRoute = off
		s.publish(KindOffRoute, st.ID, OffRouteChanged{
			Type:           KindOffRoute,
			ID:             string(st.ID),
			IsOffRoute:     off,
			DistanceMeters: pos.DistanceFromRouteM,
			At:             s.now().UnixMilli(),
		})
	}

	// Arrival compares against the declared destination, not the projected
	// point: a shortcut that reaches the target still finishes.
	destDist := geo.Haversine(here, tr.Destination())
	if destDist <= s.settings.ArrivalThresholdM {
		st.Arrived = true
		st.Progress = 1
		st.FinishedAt = s.now()
		s.finishCount++
		s.publish(KindArrival, st.ID, ArrivalDetected{
			Type:       KindArrival,
			ID:         string(st.ID),
			FinishedAt: st.FinishedAt.UnixMilli(),
			Rank:       s.finishCount,
		})
	} else {
		st.Progress = pos.Progress
		s.publish(KindPosition, st.ID, PositionUpdated{
			Type:                   KindPosition,
			ID:                     string(st.ID),
			Progress:               st.Progress,
			Lon:                    fix.Lon,
			Lat:                    fix.Lat,
			DistanceToDestinationM: destDist,
			At:                     s.now().UnixMilli(),
		})
	}

	s.refreshRankingLocked()

	if s.finishCount == len(s.states) {
		s.endLocked(ReasonAllFinished)
	}
}

func (s *Session) refreshRankingLocked() {
	order := Ranking(s.stateSliceLocked())
	if sameOrder(order, s.lastOrder) {
		return
	}
	s.lastOrder = order

	ids := make([]string, len(order))
	for i, id := range order {
		ids[i] = string(id)
	}
	s.publish(KindRanking, "", RankingChanged{Type: KindRanking, Order: ids, At: s.now().UnixMilli()})
}

func (s *Session) endLocked(reason EndReason) {
	if s.phase != PhaseRunning {
		return
	}
	close(s.stop)
	for _, slot := range s.drivers {
		s.stopSlotLocked(slot)
	}
	s.phase = PhaseEnded
	s.publish(KindRaceEnded, "", RaceEnded{Type: KindRaceEnded, Reason: string(reason), At: s.now().UnixMilli()})

	if s.rec != nil {
		res := s.resultLocked(reason)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.rec.RecordResult(ctx, res); err != nil {
				log.Printf("race %s: record result failed: %v", s.ID, err)
			}
		}()
	}
}

func (s *Session) resultLocked(reason EndReason) Result {
	order := Ranking(s.stateSliceLocked())
	placements := make([]Placement, 0, len(order))
	for i, id := range order {
		st := s.states[id]
		placements = append(placements, Placement{
			Participant: id,
			Rank:        i + 1,
			Progress:    st.Progress,
			FinishedAt:  st.FinishedAt,
		})
	}
	return Result{
		RaceID:     s.ID,
		Reason:     reason,
		EndedAt:    s.now(),
		Placements: placements,
	}
}

func (s *Session) startDriverLocked(id ParticipantID, slot *driverSlot) {
	s.stopSlotLocked(slot)

	if slot.kind != DriverSimulated {
		if slot.kind == DriverGPS {
			g := NewGPSDriver(id)
			slot.active = g
			g.Start()
		}
		return
	}
	speed := slot.speed
	if speed <= 0 {
		speed = s.settings.BotMinSpeed +
			s.rng.Float64()*(s.settings.BotMaxSpeed-s.settings.BotMinSpeed)
	}
	// Drivers enqueue straight onto the inbound channel: they must never take
	// the session lock, or stopping them from inside it would deadlock.
	inbound := s.inbound
	submit := func(f Fix) {
		select {
		case inbound <- f:
		default:
		}
	}
	d := NewSimDriver(id, s.tracks[id], speed, s.settings.BotTick, s.states[id].Progress, submit)
	slot.active = d
	d.Start()
}

func (s *Session) stopSlotLocked(slot *driverSlot) {
	if slot.active != nil {
		slot.active.Stop()
		slot.active = nil
	}
}

func (s *Session) stateSliceLocked() []*State {
	out := make([]*State, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st)
	}
	return out
}

func (s *Session) publish(kind string, participant ParticipantID, v any) {
	if s.pub == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.pub.Publish(s.ID, kind, string(participant), payload)
}

func sameOrder(a, b []ParticipantID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
