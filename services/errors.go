package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine errors for the HTTP layer.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindConflict     ErrorKind = "conflict"
	KindNotFound     ErrorKind = "not_found"
	KindPrecondition ErrorKind = "precondition"
)

// Error is a recoverable engine error. Two Errors match under errors.Is when
// their codes are equal, so wrapped or re-messaged copies still match the
// sentinels below.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrQuestNotFound            = &Error{Kind: KindNotFound, Code: "QUEST_NOT_FOUND", Message: "quest not found"}
	ErrGateNotFound             = &Error{Kind: KindNotFound, Code: "GATE_NOT_FOUND", Message: "gate not found"}
	ErrUnknownGate              = &Error{Kind: KindValidation, Code: "UNKNOWN_GATE", Message: "unknown gate code"}
	ErrUnknownGateRank          = &Error{Kind: KindValidation, Code: "UNKNOWN_RANK", Message: "unknown rank"}
	ErrNegativeXP               = &Error{Kind: KindValidation, Code: "NEGATIVE_XP", Message: "xp awards must be non-negative"}
	ErrXPLimit                  = &Error{Kind: KindValidation, Code: "XP_LIMIT", Message: "xp award would exceed the ledger maximum"}
	ErrInvalidEvent             = &Error{Kind: KindValidation, Code: "INVALID_EVENT", Message: "malformed workout event"}
	ErrNotCompleted             = &Error{Kind: KindPrecondition, Code: "NOT_COMPLETED", Message: "not completed yet"}
	ErrNotAvailable             = &Error{Kind: KindPrecondition, Code: "NOT_AVAILABLE", Message: "gate is not available"}
	ErrNotActive                = &Error{Kind: KindPrecondition, Code: "NOT_ACTIVE", Message: "gate is not active"}
	ErrAlreadyHasActiveInstance = &Error{Kind: KindPrecondition, Code: "ALREADY_HAS_ACTIVE_GATE", Message: "an active gate is already in progress"}
	ErrNoEligibleGate           = &Error{Kind: KindPrecondition, Code: "NO_ELIGIBLE_GATE", Message: "no gate definition is eligible for spawn"}
	ErrAlreadyClaimed           = &Error{Kind: KindConflict, Code: "ALREADY_CLAIMED", Message: "reward already claimed"}
	ErrDuplicateEvent           = &Error{Kind: KindConflict, Code: "DUPLICATE_EVENT", Message: "workout already processed"}
	ErrDuplicateSpawn           = &Error{Kind: KindConflict, Code: "DUPLICATE_SPAWN", Message: "an unresolved instance of this gate already exists"}
)

// validationError wraps a validator failure under ErrInvalidEvent's code.
func validationError(err error) error {
	return &Error{Kind: KindValidation, Code: ErrInvalidEvent.Code, Message: ErrInvalidEvent.Message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" for
// storage and other unexpected failures.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
