package client

import "errors"

var (
	// ErrMissingInstance is returned when the config names no instance.
	ErrMissingInstance = errors.New("client: missing instance")

	// ErrMissingAuth is returned when the config carries neither a credential
	// provider nor credentials to build one from.
	ErrMissingAuth = errors.New("client: missing credentials")

	// ErrInvalidInstance is returned when the instance value cannot be
	// normalized into a base URL.
	ErrInvalidInstance = errors.New("client: invalid instance")

	// ErrEmptyTable is returned when an operation names no table.
	ErrEmptyTable = errors.New("client: empty table name")

	// ErrEmptyRecordID is returned when a record operation names no sys_id.
	ErrEmptyRecordID = errors.New("client: empty record id")

	// ErrEmptyPayload is returned when a write operation carries no fields.
	ErrEmptyPayload = errors.New("client: empty payload")
)
