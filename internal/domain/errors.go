package domain

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("conflict")
	ErrVaultNotActive      = errors.New("vault is not active")
	ErrInvalidTransition   = errors.New("invalid vault status transition")
	ErrNoSharesSold        = errors.New("offering has no shares sold")
	ErrNoFundsAvailable    = errors.New("no funds available for distribution")
	ErrDepositNotPending   = errors.New("deposit is not pending")
	ErrDepositNotVerified  = errors.New("deposit is not verified")
	ErrClaimNotAvailable   = errors.New("claim is not available")
	ErrClaimExpired        = errors.New("claim has expired")
	ErrInsufficientBalance = errors.New("insufficient vault balance")
	ErrSigningKeyMissing   = errors.New("audit signing key not configured")
)
