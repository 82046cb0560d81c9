package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room ID does not resolve.
	ErrRoomNotFound = errors.New("room not found")
	// ErrInvalidCode is returned when no room carries the submitted join code.
	ErrInvalidCode = errors.New("invalid room code")
	// ErrAlreadyJoined is returned when a learner re-joins a room they hold.
	ErrAlreadyJoined = errors.New("already joined this room")
	// ErrUserNotFound is returned when a user ID does not resolve.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingCredential rejects registration without a name or password.
	ErrMissingCredential = errors.New("name and password are required")
	// ErrStudentNotFound is returned when no row exists for a (student, room) pair.
	ErrStudentNotFound = errors.New("student data not found")
	// ErrChallengeNotFound is returned when a challenge ID is not in the room.
	ErrChallengeNotFound = errors.New("challenge not found in room")
	// ErrFieldNotFound is returned when a workspace field ID is not in the challenge.
	ErrFieldNotFound = errors.New("workspace field not found in challenge")
	// ErrEmptyReflection rejects blank or whitespace-only reflection text.
	ErrEmptyReflection = errors.New("reflection text is empty")
	// ErrFlowNotStarted is returned when quiz actions arrive before the flow exists.
	ErrFlowNotStarted = errors.New("quiz flow not started")
	// ErrFlowFinished is returned for answer submissions after the terminal state.
	ErrFlowFinished = errors.New("quiz flow already finished")
	// ErrWrongState is returned when an action does not match the flow's state.
	ErrWrongState = errors.New("action not valid in current quiz state")
	// ErrEmptyAnswer rejects advancing past a question without a selection.
	ErrEmptyAnswer = errors.New("answer is empty")
	// ErrInvalidOption rejects a selection that is not one of the question's options.
	ErrInvalidOption = errors.New("selection is not a valid option")
	// ErrForbidden is returned when a caller's role does not permit an action.
	ErrForbidden = errors.New("operation not permitted for this role")
)
