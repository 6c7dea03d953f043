package errors

import "errors"

var (
	ErrAccountNotFound        = errors.New("account not found or not authorized for this user")
	ErrAccountNotActivated    = errors.New("account is not fully activated")
	ErrUserNotFound           = errors.New("user not found")
	ErrSecurityAnswerInvalid  = errors.New("security answer is incorrect")
	ErrTransferSessionExpired = errors.New("transfer session not found or expired")
	ErrOTPInvalid             = errors.New("one-time code is invalid")
	ErrOTPExpired             = errors.New("one-time code has expired")
	ErrOTPAlreadyUsed         = errors.New("one-time code already used")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrNilTransaction         = errors.New("transaction is nil")
	ErrSameAccount            = errors.New("sender and receiver accounts must differ")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInternal               = errors.New("internal error")
)
