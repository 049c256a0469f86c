package sandbox

import (
	"fmt"
)

// AlreadyActiveError - StartNewTransaction was called while a sandbox session is already open.
type AlreadyActiveError struct{}

func (e *AlreadyActiveError) Error() string {
	return "a sandbox transaction is already active: call RollbackCurrentTransaction before starting a new one"
}

// NoActiveTransactionError - an operation that requires an open sandbox session found none.
type NoActiveTransactionError struct{}

func (e *NoActiveTransactionError) Error() string {
	return "no sandbox transaction is active: call StartNewTransaction first"
}

// InvalidTransactionArgumentError - the transaction proxy received neither a
// collection of deferred queries nor a transactional callback.
type InvalidTransactionArgumentError struct {
	arg any
}

// NewInvalidTransactionArgumentError - InvalidTransactionArgumentError constructor.
func NewInvalidTransactionArgumentError(arg any) *InvalidTransactionArgumentError {
	return &InvalidTransactionArgumentError{arg: arg}
}

func (e *InvalidTransactionArgumentError) Error() string {
	return fmt.Sprintf("invalid transaction argument of type %T: expected a []*DeferredQuery or a transactional callback", e.arg)
}

// TransactionChangedError - the active session changed between the moment an
// operation snapshotted it and the moment a savepoint command had to run.
// This happens when a previous call was not waited for before starting or
// rolling back a session.
type TransactionChangedError struct {
	ExpectedSession string
	ActualSession   string
}

// NewTransactionChangedError - TransactionChangedError constructor.
func NewTransactionChangedError(expected, actual string) *TransactionChangedError {
	return &TransactionChangedError{ExpectedSession: expected, ActualSession: actual}
}

func (e *TransactionChangedError) Error() string {
	return fmt.Sprintf(
		"the sandbox transaction changed underneath an in-flight operation (expected session %s, found %s): a previous query was probably not waited for",
		e.ExpectedSession, e.ActualSession)
}
