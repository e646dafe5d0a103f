package auth

import "errors"

var (
	// ErrNoRefreshToken indicates that refresh was requested with no stored
	// refresh token; no network call is made in that case
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrResendCooldown indicates that the OTP resend rate limit is active
	ErrResendCooldown = errors.New("please wait before requesting another code")

	// ErrNoPendingChallenge indicates an OTP verification with no login step-1 before it
	ErrNoPendingChallenge = errors.New("no pending authentication challenge")
)
