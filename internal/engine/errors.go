package engine

// Kind classifies engine errors so the transport layer can map them to
// protocol status codes without string matching.
type Kind int

const (
	// KindValidation marks malformed or out-of-range input.
	KindValidation Kind = iota
	// KindPermission marks role or ownership violations.
	KindPermission
	// KindState marks illegal lifecycle transitions.
	KindState
	// KindNotFound marks references to unknown runs, accounts, or wallets.
	KindNotFound
	// KindInsufficientFunds is the distinguished funds-check failure.
	KindInsufficientFunds
)

// Error is a typed, recoverable engine error. All guard failures surface as
// one of the sentinel values below with zero side effects.
type Error struct {
	Kind Kind
	Code string
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

var (
	ErrInvalidRole           = &Error{KindValidation, "InvalidRole", "role must be Spectator, Participant, or TeamOwner"}
	ErrUsernameTaken         = &Error{KindValidation, "UsernameTaken", "username is already registered"}
	ErrCreatorNotFound       = &Error{KindNotFound, "CreatorNotFound", "creator account not found"}
	ErrRoleNotAllowedForType = &Error{KindPermission, "RoleNotAllowedForType", "account role may not create this run type"}
	ErrRunNotFound           = &Error{KindNotFound, "RunNotFound", "run not found"}
	ErrAccountNotFound       = &Error{KindNotFound, "AccountNotFound", "account not found"}
	ErrWalletNotFound        = &Error{KindNotFound, "WalletNotFound", "wallet not found"}
	ErrCardNotFound          = &Error{KindNotFound, "CardNotFound", "performance card not found"}
	ErrNotAParticipantRole   = &Error{KindPermission, "NotAParticipantRole", "only participant accounts can join runs"}
	ErrRoleCannotPick        = &Error{KindPermission, "RoleCannotPick", "team owners cannot place picks"}
	ErrAlreadyJoined         = &Error{KindValidation, "AlreadyJoined", "account already joined this run"}
	ErrRunClosed             = &Error{KindState, "RunClosed", "run is no longer open"}
	ErrPicksDisabled         = &Error{KindState, "PicksDisabled", "picks are disabled for this run"}
	ErrPicksLocked           = &Error{KindState, "PicksLocked", "picks are locked for this run"}
	ErrInvalidPrediction     = &Error{KindValidation, "InvalidPrediction", "predicted account is not an active participant"}
	ErrNonPositiveStake      = &Error{KindValidation, "NonPositiveStake", "stake must be positive"}
	ErrInsufficientFunds     = &Error{KindInsufficientFunds, "InsufficientFunds", "insufficient funds"}
	ErrNotCreator            = &Error{KindPermission, "NotCreator", "only the run creator can post results"}
	ErrAlreadySettled        = &Error{KindState, "AlreadySettled", "results already posted for this run"}
	ErrWinnerNotParticipant  = &Error{KindValidation, "WinnerNotParticipant", "declared winner is not a participant"}
	ErrMissingTime           = &Error{KindValidation, "MissingTime", "every participant needs a recorded time"}
	ErrNoAccessPass          = &Error{KindValidation, "NoAccessPass", "run does not sell access passes"}
	ErrAccessAlreadyOwned    = &Error{KindValidation, "AccessAlreadyOwned", "access pass already purchased"}
	ErrNonPositiveAmount     = &Error{KindValidation, "NonPositiveAmount", "amount must be positive"}
)
