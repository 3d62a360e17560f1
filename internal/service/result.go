package service

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
)

// ResultKind classifies the outcome of a service operation.
type ResultKind string

const (
	ResultOK          ResultKind = "OK"
	ResultValidation  ResultKind = "VALIDATION_FAILED"
	ResultNotFound    ResultKind = "NOT_FOUND"
	ResultPersistence ResultKind = "PERSISTENCE_FAILED"
)

// Result is the single success/failure shape returned to callers. Failures
// are values, never Go errors.
type Result struct {
	OK      bool
	Kind    ResultKind
	Message string
	// Rule is set for validation failures.
	Rule lifecycle.Rule
	// Ticket holds the stored ticket after Create, Update and Get.
	Ticket *domain.Ticket
	// Affected counts deleted tickets for Delete and ClearAll.
	Affected int
}

func succeeded(message string) Result {
	return Result{OK: true, Kind: ResultOK, Message: message}
}

func rejected(r *lifecycle.Rejection) Result {
	return Result{Kind: ResultValidation, Message: r.Message, Rule: r.Rule}
}

func notFound(message string) Result {
	return Result{Kind: ResultNotFound, Message: message}
}

func persistenceFailed(message string) Result {
	return Result{Kind: ResultPersistence, Message: message}
}
