package engine

import "errors"

var (
	// ErrInvalidAmount is returned when a zero or out-of-range quantity is supplied to a mutating call.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidAsset is returned when an asset is not bound to the pair, or the zero address is used as an asset.
	ErrInvalidAsset = errors.New("invalid asset")
	// ErrAlreadyExists is returned when a pair for the unordered asset pair is already registered.
	ErrAlreadyExists = errors.New("pair already exists")
	// ErrSlippageExceeded is returned when the computed swap output is below the caller's floor.
	ErrSlippageExceeded = errors.New("slippage exceeded")
	// ErrInsufficientBalance is returned when a transfer or burn exceeds the holder's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientAllowance is returned when a delegated transfer exceeds the approved amount.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	// ErrInsufficientLiquidity is returned when a swap is attempted against empty reserves.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrLocked is returned when a pair is re-entered while a mutating call is in flight.
	ErrLocked = errors.New("pair is locked")
)
