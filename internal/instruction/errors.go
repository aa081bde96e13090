package instruction

import (
	"fmt"
	"regexp"
	"strconv"
)

// ProgramErrorOffset is the first custom error code of an Anchor program.
const ProgramErrorOffset = 6000

// ProgramError is an error the ShadowLend program can fail a transaction with.
type ProgramError struct {
	Code    uint32 `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("program error %d (%s): %s", e.Code, e.Name, e.Message)
}

// Program errors, in declaration order.
//
//nolint:gochecknoglobals // Static catalogue
var (
	ErrProgramInvalidAmount         = &ProgramError{6000, "InvalidAmount", "Invalid amount - must be greater than zero"}
	ErrProgramAbortedComputation    = &ProgramError{6001, "AbortedComputation", "Computation aborted - MPC verification failed"}
	ErrProgramInsufficientLiquidity = &ProgramError{6002, "InsufficientLiquidity", "Insufficient liquidity in pool"}
	ErrProgramBorrowNotApproved     = &ProgramError{6003, "BorrowNotApproved", "Borrow not approved - health factor too low"}
	ErrProgramWithdrawNotApproved   = &ProgramError{6004, "WithdrawNotApproved", "Withdrawal not approved - would violate health factor"}
	ErrProgramMathOverflow          = &ProgramError{6005, "MathOverflow", "Math overflow"}
	ErrProgramClusterNotSet         = &ProgramError{6006, "ClusterNotSet", "Cluster not set"}
	ErrProgramInvalidMint           = &ProgramError{6007, "InvalidMint", "Invalid Token Mint"}
	ErrProgramUnauthorized          = &ProgramError{6008, "Unauthorized", "Unauthorized"}
)

//nolint:gochecknoglobals // Static catalogue
var programErrors = []*ProgramError{
	ErrProgramInvalidAmount,
	ErrProgramAbortedComputation,
	ErrProgramInsufficientLiquidity,
	ErrProgramBorrowNotApproved,
	ErrProgramWithdrawNotApproved,
	ErrProgramMathOverflow,
	ErrProgramClusterNotSet,
	ErrProgramInvalidMint,
	ErrProgramUnauthorized,
}

// ProgramErrors returns the catalogue in code order.
func ProgramErrors() []*ProgramError {
	return append([]*ProgramError(nil), programErrors...)
}

// LookupProgramError returns the error with the given code.
func LookupProgramError(code uint32) (*ProgramError, bool) {
	if code < ProgramErrorOffset || code >= ProgramErrorOffset+uint32(len(programErrors)) {
		return nil, false
	}
	return programErrors[code-ProgramErrorOffset], true
}

//nolint:gochecknoglobals // Compiled once
var (
	customErrorRe = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)
	anchorErrorRe = regexp.MustCompile(`Error Number: (\d+)`)
)

// ParseProgramError finds a ShadowLend error code in a transaction log
// line or simulation error message.
func ParseProgramError(msg string) (*ProgramError, bool) {
	if m := customErrorRe.FindStringSubmatch(msg); m != nil {
		if code, err := strconv.ParseUint(m[1], 16, 32); err == nil {
			return LookupProgramError(uint32(code))
		}
	}
	if m := anchorErrorRe.FindStringSubmatch(msg); m != nil {
		if code, err := strconv.ParseUint(m[1], 10, 32); err == nil {
			return LookupProgramError(uint32(code))
		}
	}
	return nil, false
}
