package service

import (
	"errors"
	"fmt"
)

// Error categories. Every error a service returns to a caller wraps exactly one of
// these, or is a transient storage failure.
var (
	ErrValidation        = errors.New("validation error")
	ErrStateConflict     = errors.New("state conflict")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
)

var (
	ErrBelowMinimum  = fmt.Errorf("%w: amount is below the minimum bet", ErrValidation)
	ErrInvalidAmount = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrInvalidStake  = fmt.Errorf("%w: stake is not an allowed tier", ErrValidation)
	ErrInvalidChoice = fmt.Errorf("%w: choice must be rock, paper or scissors", ErrValidation)

	ErrDuplicateWager         = fmt.Errorf("%w: you already have a waiting bet", ErrStateConflict)
	ErrNotJoinable            = fmt.Errorf("%w: bet is no longer open", ErrStateConflict)
	ErrSelfJoin               = fmt.Errorf("%w: cannot join your own bet", ErrStateConflict)
	ErrNotOwner               = fmt.Errorf("%w: only the creator can cancel this bet", ErrStateConflict)
	ErrAlreadyMatched         = fmt.Errorf("%w: bet is already matched, cancel the game instead", ErrStateConflict)
	ErrNotCancellable         = fmt.Errorf("%w: bet can no longer be cancelled", ErrStateConflict)
	ErrAlreadyQueued          = fmt.Errorf("%w: already waiting in matchmaking", ErrStateConflict)
	ErrAlreadyResolved        = fmt.Errorf("%w: game is already resolved", ErrStateConflict)
	ErrMatchCancelled         = fmt.Errorf("%w: game was cancelled", ErrStateConflict)
	ErrNotAParticipant        = fmt.Errorf("%w: not a player in this game", ErrStateConflict)
	ErrChoiceAlreadySubmitted = fmt.Errorf("%w: choice already submitted for this round", ErrStateConflict)
	ErrRoundResetting         = fmt.Errorf("%w: round ended in a draw, next round starts shortly", ErrStateConflict)
	ErrMatchNotStale          = fmt.Errorf("%w: game is still within the choice timer", ErrStateConflict)
	ErrDuplicateReference     = fmt.Errorf("%w: payment reference already credited", ErrStateConflict)

	ErrAccountNotFound         = fmt.Errorf("%w: account", ErrNotFound)
	ErrBetNotFound             = fmt.Errorf("%w: bet", ErrNotFound)
	ErrMatchNotFound           = fmt.Errorf("%w: game", ErrNotFound)
	ErrPaymentReferenceUnknown = fmt.Errorf("%w: payment reference", ErrNotFound)

	ErrUnknownPaymentStatus = fmt.Errorf("%w: unknown payment status", ErrValidation)
)

// insufficientFunds wraps ErrInsufficientFunds with the amounts involved
func insufficientFunds(have, need int64) error {
	return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, have, need)
}
