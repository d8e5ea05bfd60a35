package meroshare

import "errors"

var (
	// ErrSessionExpired indicates the session token is missing or no longer valid.
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidCredentials indicates MeroShare rejected the username or password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnknownDP indicates the depository participant code is not listed by MeroShare.
	ErrUnknownDP = errors.New("unknown depository participant")

	// ErrAccountExpired indicates the password, account or demat has expired.
	ErrAccountExpired = errors.New("account or password expired")

	// ErrNoBankAccount indicates the selected bank has no linked account.
	ErrNoBankAccount = errors.New("no bank account linked")
)
