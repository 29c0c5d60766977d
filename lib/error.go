package lib

import (
	"errors"
	"fmt"
	"math"
)

type ErrorI interface {
	Code() ErrorCode     // Returns the error code
	Module() ErrorModule // Returns the error module
	error                // Implements the built-in error interface
}

var _ ErrorI = &Error{} // Ensures *Error implements ErrorI

type ErrorCode uint32 // Defines a type for error codes

type ErrorModule string // Defines a type for error modules

type Error struct {
	ECode   ErrorCode   `json:"code"`   // Error code
	EModule ErrorModule `json:"module"` // Error module
	Msg     string      `json:"msg"`    // Error message
}

// NewError() constructs a new Error instance
func NewError(code ErrorCode, module ErrorModule, msg string) *Error {
	return &Error{ECode: code, EModule: module, Msg: msg}
}

// Code() returns the associated error code
func (p *Error) Code() ErrorCode { return p.ECode }

// Module() returns module field
func (p *Error) Module() ErrorModule { return p.EModule }

// String() calls Error()
func (p *Error) String() string { return p.Error() }

// Error() returns a formatted string including module, code and message
func (p *Error) Error() string {
	return fmt.Sprintf("\nModule:  %s\nCode:    %d\nMessage: %s", p.EModule, p.ECode, p.Msg)
}

// IsCode() reports whether err is an ErrorI carrying the code from the module
func IsCode(err error, module ErrorModule, code ErrorCode) bool {
	var e ErrorI
	if !errors.As(err, &e) {
		return false
	}
	return e.Module() == module && e.Code() == code
}

const (
	NoCode ErrorCode = math.MaxUint32

	// Main Module
	MainModule ErrorModule = "main"

	// Main Module Error Codes
	CodeJSONMarshal       ErrorCode = 1
	CodeJSONUnmarshal     ErrorCode = 2
	CodeUnmarshal         ErrorCode = 3
	CodeMarshal           ErrorCode = 4
	CodeNilBlock          ErrorCode = 5
	CodeNilTransaction    ErrorCode = 6
	CodeWrongLengthHash   ErrorCode = 7
	CodeInvalidHeight     ErrorCode = 8
	CodeEmptyAccountID    ErrorCode = 9
	CodeInvalidAmount     ErrorCode = 10
	CodeReadFile          ErrorCode = 11
	CodeWriteFile         ErrorCode = 12
	CodeConfiguration     ErrorCode = 13
	CodeUnknownMessage    ErrorCode = 14
	CodeInvalidArgument   ErrorCode = 15
	CodeStringToBytes     ErrorCode = 16
	CodeUnexpectedWireTag ErrorCode = 17
	CodeRoundTimeout      ErrorCode = 18
	CodeSimulation        ErrorCode = 19

	// Consensus Module
	ConsensusModule ErrorModule = "consensus"

	// Consensus Module Error Codes
	CodeUnknownDelegate        ErrorCode = 1
	CodeInsufficientCandidates ErrorCode = 2
	CodeNoCandidateBlocks      ErrorCode = 3
	CodeNotMyCommit            ErrorCode = 4
	CodeOutOfPhase             ErrorCode = 5
	CodeCommittedBlockMismatch ErrorCode = 6
	CodeStaleRound             ErrorCode = 7
	CodeDuplicateDelegate      ErrorCode = 8
	CodeNonSequentialBlock     ErrorCode = 9

	// State Machine Module
	StateMachineModule ErrorModule = "state_machine"

	// State Machine Module Error Codes
	CodeInsufficientFunds ErrorCode = 1
	CodeInvalidGenesis    ErrorCode = 2
	CodeNoCandidates      ErrorCode = 3

	// P2P Module
	P2PModule ErrorModule = "p2p"

	// P2P Module Error Codes
	CodeUnknownParticipant   ErrorCode = 1
	CodeDuplicateParticipant ErrorCode = 2
	CodeMailboxClosed        ErrorCode = 3

	// Storage Module
	StorageModule ErrorModule = "store"

	// Storage Module Error Codes
	CodeOpenDB      ErrorCode = 1
	CodeCloseDB     ErrorCode = 2
	CodeStoreSet    ErrorCode = 3
	CodeStoreGet    ErrorCode = 4
	CodeBlockNotFnd ErrorCode = 5

	// RPC Module
	RPCModule ErrorModule = "rpc"

	// RPC Module Error Codes
	CodeRPCTimeout     ErrorCode = 1
	CodeInvalidParam   ErrorCode = 2
	CodeHttpStatus     ErrorCode = 3
	CodeReadBody       ErrorCode = 5
	CodeNotFound       ErrorCode = 6
	CodeServerShutdown ErrorCode = 7
	CodeGetRequest     ErrorCode = 8
	CodeListen         ErrorCode = 9
)

func ErrUnmarshal(err error) ErrorI {
	return NewError(CodeUnmarshal, MainModule, fmt.Sprintf("unmarshal() failed with err: %s", err.Error()))
}

func ErrMarshal(err error) ErrorI {
	return NewError(CodeMarshal, MainModule, fmt.Sprintf("marshal() failed with err: %s", err.Error()))
}

func ErrJSONUnmarshal(err error) ErrorI {
	return NewError(CodeJSONUnmarshal, MainModule, fmt.Sprintf("json.unmarshal() failed with err: %s", err.Error()))
}

func ErrJSONMarshal(err error) ErrorI {
	return NewError(CodeJSONMarshal, MainModule, fmt.Sprintf("json.marshal() failed with err: %s", err.Error()))
}

func ErrUnexpectedWireTag(num int32) ErrorI {
	return NewError(CodeUnexpectedWireTag, MainModule, fmt.Sprintf("unexpected wire type for field %d", num))
}

func ErrStringToBytes(err error) ErrorI {
	return NewError(CodeStringToBytes, MainModule, fmt.Sprintf("stringToBytes() failed with err: %s", err.Error()))
}

func ErrNilBlock() ErrorI {
	return NewError(CodeNilBlock, MainModule, "block is nil")
}

func ErrNilTransaction() ErrorI {
	return NewError(CodeNilTransaction, MainModule, "transaction is nil")
}

func ErrWrongLengthHash() ErrorI {
	return NewError(CodeWrongLengthHash, MainModule, "wrong length hash")
}

func ErrInvalidHeight(expected, got uint64) ErrorI {
	return NewError(CodeInvalidHeight, MainModule, fmt.Sprintf("invalid block height: expected %d, got %d", expected, got))
}

func ErrEmptyAccountID() ErrorI {
	return NewError(CodeEmptyAccountID, MainModule, "account id is empty")
}

func ErrInvalidAmount(s string) ErrorI {
	return NewError(CodeInvalidAmount, MainModule, fmt.Sprintf("invalid amount %q", s))
}

func ErrReadFile(err error) ErrorI {
	return NewError(CodeReadFile, MainModule, fmt.Sprintf("os.ReadFile() failed with err: %s", err.Error()))
}

func ErrWriteFile(err error) ErrorI {
	return NewError(CodeWriteFile, MainModule, fmt.Sprintf("os.WriteFile() failed with err: %s", err.Error()))
}

// ErrConfiguration() is fatal to starting a round and must be surfaced to the operator
func ErrConfiguration(reason string) ErrorI {
	return NewError(CodeConfiguration, MainModule, fmt.Sprintf("invalid configuration: %s", reason))
}

func ErrUnknownMessage(m any) ErrorI {
	return NewError(CodeUnknownMessage, MainModule, fmt.Sprintf("unknown message type %T", m))
}

func ErrInvalidArgument(reason string) ErrorI {
	return NewError(CodeInvalidArgument, MainModule, reason)
}
