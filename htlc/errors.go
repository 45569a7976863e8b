package htlc

import "errors"

var (
	// ErrScriptBuild indicates a script could not be assembled.
	ErrScriptBuild = errors.New("htlc: script build failed")

	// ErrInvalidParams indicates missing or malformed script parameters.
	ErrInvalidParams = errors.New("htlc: invalid parameters")

	// ErrMissingSignature indicates an unlocking script was requested without the spender's signature.
	ErrMissingSignature = errors.New("htlc: missing signature")

	// ErrSecretNotFound indicates no input of a transaction reveals the secret.
	ErrSecretNotFound = errors.New("htlc: secret not found")

	// ErrScriptFailed indicates an unlocking script does not satisfy its locking script.
	ErrScriptFailed = errors.New("htlc: script evaluation failed")

	// ErrUnrecognizedScript indicates a locking script matching neither contract template.
	ErrUnrecognizedScript = errors.New("htlc: unrecognized contract script")
)
