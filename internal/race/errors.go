package race

import "errors"

var (
	// ErrIncompleteAssignment means Start was called before every participant
	// had a route assigned.
	ErrIncompleteAssignment = errors.New("race: every participant needs a route before starting")

	// ErrDriverConflict means a fix source of one kind was requested while a
	// source of the other kind is active for the same participant.
	ErrDriverConflict = errors.New("race: another fix source is active for this participant")

	// ErrUnknownParticipant means the participant id is not part of this race.
	ErrUnknownParticipant = errors.New("race: unknown participant")

	// ErrSessionEnded means the session already left the Running phase.
	ErrSessionEnded = errors.New("race: session has ended")

	// ErrAlreadyStarted means Start was called on a session that is not idle.
	ErrAlreadyStarted = errors.New("race: session already started")

	// ErrRaceNotFound means no live session exists for the given id.
	ErrRaceNotFound = errors.New("race: not found")

	// ErrNoParticipants means a race was created with an empty participant set.
	ErrNoParticipants = errors.New("race: at least one participant required")

	// ErrDuplicateParticipant means a participant id was listed twice.
	ErrDuplicateParticipant = errors.New("race: duplicate participant id")
)
