package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Class is the session manager's view of a provider error.
type Class int

// Error classes.
const (
	ClassNone Class = iota
	// ClassRejected is an expected refusal by the user.
	ClassRejected
	// ClassTransient is a temporary unavailability worth one retry.
	ClassTransient
	// ClassAbsent means no wallet capability exists on this platform.
	ClassAbsent
	// ClassHard is any other failure.
	ClassHard
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassRejected:
		return "rejected"
	case ClassTransient:
		return "transient"
	case ClassAbsent:
		return "absent"
	case ClassHard:
		return "hard"
	default:
		return "unknown"
	}
}

// CodeUserRejected is the EIP-1193 code for a refused request.
const CodeUserRejected = 4001

var (
	// ErrRejected indicates the user refused the request.
	ErrRejected = errors.New("user rejected the request")

	// ErrTransient indicates the provider is temporarily unreachable.
	ErrTransient = errors.New("provider temporarily unavailable")

	// ErrNotDetected indicates no injected wallet was found.
	ErrNotDetected = errors.New("no wallet provider detected")

	// ErrNoWalletApp indicates no native wallet app is installed.
	ErrNoWalletApp = errors.New("no compatible wallet app found")
)

// transientSignals are message fragments browser wallets produce while
// their background worker is restarting.
//
//nolint:gochecknoglobals // Static lookup list
var transientSignals = []string{
	"port disconnected",
	"disconnected port",
	"worker not ready",
	"receiving end does not exist",
}

// RPCError is a provider error carrying an EIP-1193 style code.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements error.
func (e *RPCError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// Is reports a rejection code as ErrRejected.
func (e *RPCError) Is(target error) bool {
	return target == ErrRejected && e.Code == CodeUserRejected
}

// Classify sorts err into a Class.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}

	switch {
	case errors.Is(err, ErrNotDetected), errors.Is(err, ErrNoWalletApp):
		return ClassAbsent
	case errors.Is(err, ErrRejected):
		return ClassRejected
	case errors.Is(err, ErrTransient):
		return ClassTransient
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "user rejected") {
		return ClassRejected
	}
	for _, signal := range transientSignals {
		if strings.Contains(msg, signal) {
			return ClassTransient
		}
	}
	return ClassHard
}
