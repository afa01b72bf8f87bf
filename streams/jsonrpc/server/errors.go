package server

import (
	"errors"

	"github.com/defistate/defistate-amm-go/engine"
)

// Error codes returned to RPC clients, outside the range JSON-RPC reserves for
// protocol errors.
const (
	CodeInvalidAmount         = -38001
	CodeInvalidAsset          = -38002
	CodeAlreadyExists         = -38003
	CodeSlippageExceeded      = -38004
	CodeInsufficientBalance   = -38005
	CodeInsufficientAllowance = -38006
	CodeInsufficientLiquidity = -38007
	CodeLocked                = -38008
	CodeInternal              = -38000
)

var errorCodes = []struct {
	err  error
	code int
}{
	// Ordered by precedence. A rejected quantity is reported as such even when
	// the pair also wraps the balance it was checked against.
	{engine.ErrInvalidAmount, CodeInvalidAmount},
	{engine.ErrInsufficientBalance, CodeInsufficientBalance},
	{engine.ErrInsufficientAllowance, CodeInsufficientAllowance},
	{engine.ErrInsufficientLiquidity, CodeInsufficientLiquidity},
	{engine.ErrSlippageExceeded, CodeSlippageExceeded},
	{engine.ErrAlreadyExists, CodeAlreadyExists},
	{engine.ErrLocked, CodeLocked},
	{engine.ErrInvalidAsset, CodeInvalidAsset},
}

// apiError carries an error code to the rpc package, which reports it to the client.
type apiError struct {
	code int
	err  error
}

func (e *apiError) Error() string  { return e.err.Error() }
func (e *apiError) ErrorCode() int { return e.code }
func (e *apiError) Unwrap() error  { return e.err }

func toAPIError(err error) error {
	if err == nil {
		return nil
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return &apiError{code: c.code, err: err}
		}
	}
	return &apiError{code: CodeInternal, err: err}
}
