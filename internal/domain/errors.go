package domain

import "errors"

var (
	ErrTransactionIDRequired = errors.New("transaction id required")
	ErrPaymentNotCompleted   = errors.New("payment not completed")
	ErrAmountMismatch        = errors.New("amount mismatch")
	ErrUpstream              = errors.New("payment provider request failed")
	ErrTokenRequired         = errors.New("token required")
	ErrTokenInvalid          = errors.New("invalid token")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenAlreadyUsed      = errors.New("token already used")
	ErrOriginUnreachable     = errors.New("origin unreachable")
)
