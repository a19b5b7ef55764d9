// Package errs implements the engine-wide error taxonomy. All errors
// returned out of a scheme's Init/Process/ProcessCardinalityOnly are
// one of the kinds declared here, so that callers can dispatch on
// errors.As rather than string-matching.
package errs

import "fmt"

// InvalidArgumentError flags a null transport, an empty file path, an
// unexpected curve id, or any other out-of-range parameter.
type InvalidArgumentError struct {
	Msg string
}

func (e *InvalidArgumentError) Error() string { return fmt.Sprintf("invalid argument: %s", e.Msg) }

// InvalidArgument constructs an InvalidArgumentError.
func InvalidArgument(format string, args ...interface{}) error {
	return &InvalidArgumentError{Msg: fmt.Sprintf(format, args...)}
}

// InconsistentParameterError is raised by the parameter-consistency
// handshake when the two peers disagree on a numeric protocol
// parameter.
type InconsistentParameterError struct {
	Label      string
	Self, Peer interface{}
}

func (e *InconsistentParameterError) Error() string {
	return fmt.Sprintf("inconsistent parameter %q: self=%v peer=%v", e.Label, e.Self, e.Peer)
}

// InconsistentParameter constructs an InconsistentParameterError.
func InconsistentParameter(label string, self, peer interface{}) error {
	return &InconsistentParameterError{Label: label, Self: self, Peer: peer}
}

// StashNonEmptyError is raised when a cuckoo insertion overflows its
// displacement budget and lands elements in the stash, which both
// peers are required to keep empty.
type StashNonEmptyError struct {
	Size int
}

func (e *StashNonEmptyError) Error() string {
	return fmt.Sprintf("cuckoo stash is non-empty: %d item(s) could not be placed", e.Size)
}

// StashNonEmpty constructs a StashNonEmptyError.
func StashNonEmpty(size int) error {
	return &StashNonEmptyError{Size: size}
}

// ProtocolDesyncError flags an unexpected short read or a premature
// EOF on the transport.
type ProtocolDesyncError struct {
	Msg string
}

func (e *ProtocolDesyncError) Error() string { return fmt.Sprintf("protocol desync: %s", e.Msg) }

// ProtocolDesync constructs a ProtocolDesyncError.
func ProtocolDesync(format string, args ...interface{}) error {
	return &ProtocolDesyncError{Msg: fmt.Sprintf(format, args...)}
}

// CryptoFaultError flags a point deserialization or curve operation
// failure.
type CryptoFaultError struct {
	Msg string
}

func (e *CryptoFaultError) Error() string { return fmt.Sprintf("crypto fault: %s", e.Msg) }

// CryptoFault constructs a CryptoFaultError.
func CryptoFault(format string, args ...interface{}) error {
	return &CryptoFaultError{Msg: fmt.Sprintf(format, args...)}
}

// NotRegisteredError flags a scheme registry lookup that failed.
type NotRegisteredError struct {
	Scheme string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("scheme %q is not registered", e.Scheme)
}

// NotRegistered constructs a NotRegisteredError.
func NotRegistered(scheme string) error {
	return &NotRegisteredError{Scheme: scheme}
}
