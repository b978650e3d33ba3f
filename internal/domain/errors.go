package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session is not registered.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNoQuestions indicates the quiz exists but has nothing to answer.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrInvalidOption indicates a selected option label is not A-D.
	ErrInvalidOption = errors.New("invalid option")
	// ErrQuestionIndexOutOfRange is returned when jumping past either end of the quiz.
	ErrQuestionIndexOutOfRange = errors.New("question index out of range")
	// ErrInvalidPhase is returned when an action does not apply to the session's current phase.
	ErrInvalidPhase = errors.New("action not allowed in current phase")
	// ErrNoAnswers is returned when an explicit submit is attempted before any answer.
	ErrNoAnswers = errors.New("at least one answer is required to submit")
	// ErrAlreadySubmitted is returned by every submit after the first.
	ErrAlreadySubmitted = errors.New("session already submitted")
	// ErrForbidden is returned when a learner touches another learner's session.
	ErrForbidden = errors.New("session belongs to another learner")
	// ErrUnauthorized indicates missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")
)
