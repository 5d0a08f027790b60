// Package gatewayerr names the sentinel error classes the gateway reports so
// callers can branch with errors.Is/errors.As instead of string matching.
package gatewayerr

import (
	"errors"
	"fmt"
)

// Sentinel classes. Wrap with fmt.Errorf("...: %w", ErrX) to attach context
// and still satisfy errors.Is(err, ErrX).
var (
	// ErrConfiguration covers malformed or inconsistent project/config documents.
	ErrConfiguration = errors.New("configuration error")

	// ErrConnectFailed covers transport-level connect failures (TCP dial,
	// serial port open) for a Modbus device.
	ErrConnectFailed = errors.New("connect failed")

	// ErrReadFailed covers a failed or exception-response Modbus read.
	ErrReadFailed = errors.New("read failed")

	// ErrWriteFailed covers a failed or exception-response Modbus write.
	ErrWriteFailed = errors.New("write failed")

	// ErrDecodeFailed covers codec failures: wrong register count, invalid
	// data type, scaling division-by-zero treated as fatal by the caller.
	ErrDecodeFailed = errors.New("decode failed")

	// ErrQueueFull covers a write queue rejecting a brand-new (address, fc)
	// key because it is already at capacity.
	ErrQueueFull = errors.New("write queue full")

	// ErrOpcuaStartFailure covers OPC UA server startup failures (bind,
	// certificate generation/load, node-tree build).
	ErrOpcuaStartFailure = errors.New("opcua start failure")

	// ErrWritePermissionDenied covers a write attempt against a read-only tag.
	ErrWritePermissionDenied = errors.New("write permission denied")

	// ErrUnauthorized covers a rejected OPC UA session (bad credentials,
	// disallowed anonymous access).
	ErrUnauthorized = errors.New("unauthorized")
)

// Wrap attaches context to a sentinel class while keeping it matchable by
// errors.Is. Equivalent to fmt.Errorf("%s: %w", msg, class) but keeps call
// sites terse.
func Wrap(class error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), class)
}
