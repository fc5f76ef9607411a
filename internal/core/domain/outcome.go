package domain

import "context"

// OutcomeStatus distinguishes a completed operation from a declined one.
type OutcomeStatus int

const (
	// OutcomeDone means the operation ran and succeeded.
	OutcomeDone OutcomeStatus = iota
	// OutcomeDeclined means the operation refused to run for a deterministic
	// business reason (e.g. insufficient balance). Declines are never retried.
	OutcomeDeclined
)

// Outcome is the explicit two-variant result of one operation invocation.
// Transient failures travel on the error return instead, which is what
// makes them retryable.
type Outcome struct {
	Status OutcomeStatus
	Reason string // set for declined outcomes
}

// Done reports a successful operation.
func Done() Outcome {
	return Outcome{Status: OutcomeDone}
}

// Declined reports a business-rule refusal.
func Declined(reason string) Outcome {
	return Outcome{Status: OutcomeDeclined, Reason: reason}
}

// Succeeded returns true only for completed operations.
func (o Outcome) Succeeded() bool {
	return o.Status == OutcomeDone
}

// OperationFunc is one fallible unit of work. It returns an Outcome on
// completion or decline, and an error for transient failures.
type OperationFunc func(ctx context.Context) (Outcome, error)

// Operation is a named entry in a plan.
type Operation struct {
	Name string
	Run  OperationFunc
}

// Plan is an ordered list of operations executed for one wallet.
// Operations run in slice order.
type Plan []Operation

// OperationResult records one operation invocation.
type OperationResult struct {
	Name      string
	Succeeded bool
	Declined  bool
	Err       string // terminal error message, if any
}
