package race

import "sort"

// Ranking orders participants: arrived racers first by finish time, everyone
// else by progress descending. All ties break on participant id so the order
// is deterministic. Pure function over the given snapshot.
func Ranking(states []*State) []ParticipantID {
	ordered := make([]*State, len(states))
	copy(ordered, states)

	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Arrived != b.Arrived {
			return a.Arrived
		}
		if a.Arrived {
			if !a.FinishedAt.Equal(b.FinishedAt) {
				return a.FinishedAt.Before(b.FinishedAt)
			}
			return a.ID < b.ID
		}
		if a.Progress != b.Progress {
			return a.Progress > b.Progress
		}
		return a.ID < b.ID
	})

	order := make([]ParticipantID, len(ordered))
	for i, st := range ordered {
		order[i] = st.ID
	}
	return order
}
