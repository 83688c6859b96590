package race

// Event kind tags, matching the wire "type" field.
const (
	KindPosition  = "position"
	KindArrival   = "arrival"
	KindOffRoute  = "off_route"
	KindRanking   = "ranking"
	KindRaceEnded = "race_ended"
)

// PositionUpdated reports a participant's latest mapped position.
type PositionUpdated struct {
	Type                   string  `json:"type"`
	ID                     string  `json:"id"`
	Progress               float64 `json:"progress"`
	Lon                    float64 `json:"lon"`
	Lat                    float64 `json:"lat"`
	DistanceToDestinationM float64 `json:"distanceToDestinationM"`
	At                     int64   `json:"at"`
}

// ArrivalDetected reports a participant crossing the arrival threshold. Rank
// is the finish order position, starting at 1.
type ArrivalDetected struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	FinishedAt int64  `json:"finishedAt"`
	Rank       int    `json:"rank"`
}

// OffRouteChanged reports a participant leaving or re-acquiring its route.
type OffRouteChanged struct {
	Type           string  `json:"type"`
	ID             string  `json:"id"`
	IsOffRoute     bool    `json:"isOffRoute"`
	DistanceMeters float64 `json:"distanceMeters"`
	At             int64   `json:"at"`
}

// RankingChanged carries the full ordered participant list. Emitted only when
// the order actually changes.
type RankingChanged struct {
	Type  string   `json:"type"`
	Order []string `json:"order"`
	At    int64    `json:"at"`
}

// RaceEnded closes the event stream for a race.
type RaceEnded struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
	At     int64  `json:"at"`
}
