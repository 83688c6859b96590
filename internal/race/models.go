package race

import "time"

// ParticipantID names one racer. The set is fixed for the lifetime of a session.
type ParticipantID string

// DriverKind tells which fix source feeds a participant.
type DriverKind string

const (
	DriverNone      DriverKind = ""
	DriverGPS       DriverKind = "gps"
	DriverSimulated DriverKind = "sim"
)

// Fix is one raw position observation, real or simulated. Sequence numbers
// increase per participant and gate out stale or duplicate deliveries.
type Fix struct {
	Participant  ParticipantID `json:"participantId"`
	Lon          float64       `json:"lon"`
	Lat          float64       `json:"lat"`
	AtUnixMillis int64         `json:"atUnixMillis"`
	Sequence     uint64        `json:"sequence"`
}

// State is one participant's live record. It is owned by the session actor;
// nothing outside the session mutates it.
type State struct {
	ID                 ParticipantID `json:"id"`
	Progress           float64       `json:"progress"`
	DistanceFromRouteM float64       `json:"distance_from_route_m"`
	OffRoute           bool          `json:"off_route"`
	Arrived            bool          `json:"arrived"`
	FinishedAt         time.Time     `json:"finished_at,omitempty"`
	LastFix            Fix           `json:"last_fix,omitempty"`
	HasFix             bool          `json:"-"`
}

// ParticipantSpec declares a racer at session creation time. Speed is in
// fraction-of-route per second and only meaningful for simulated drivers;
// zero means the session picks one from the configured range.
type ParticipantSpec struct {
	ID     ParticipantID `json:"id"`
	Driver DriverKind    `json:"driver,omitempty"`
	Speed  float64       `json:"speed,omitempty"`
}

// EndReason explains why a session left the Running phase.
type EndReason string

const (
	ReasonAllFinished   EndReason = "AllFinished"
	ReasonUserCancelled EndReason = "UserCancelled"
)

// Phase is the session lifecycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Result is the final standing of a finished race, handed to a Recorder.
type Result struct {
	RaceID     string
	Reason     EndReason
	EndedAt    time.Time
	Placements []Placement
}

// Placement is one participant's final standing. FinishedAt is zero for
// participants that never arrived.
type Placement struct {
	Participant ParticipantID
	Rank        int
	Progress    float64
	FinishedAt  time.Time
}

// Settings carries the tunable race constants, loaded from config.
type Settings struct {
	ArrivalThresholdM  float64
	OffRouteThresholdM float64
	BotTick            time.Duration
	BotMinSpeed        float64
	BotMaxSpeed        float64
}
