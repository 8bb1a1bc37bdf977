package netxlite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

// These are the failure strings we use to describe why a DNS round
// trip failed. The naming follows the OONI failure strings defined at
// https://github.com/ooni/spec/blob/master/data-formats/df-007-errors.md.
const (
	FailureConnectionRefused        = "connection_refused"
	FailureConnectionReset          = "connection_reset"
	FailureDNSMalformedReply        = "dns_malformed_reply"
	FailureDNSNXDOMAINError         = "dns_nxdomain_error"
	FailureDNSNoAnswer              = "dns_no_answer"
	FailureDNSRefusedError          = "dns_refused_error"
	FailureDNSReplyWithWrongQueryID = "dns_reply_with_wrong_query_id"
	FailureDNSServerMisbehaving     = "dns_server_misbehaving"
	FailureDNSServfailError         = "dns_servfail_error"
	FailureEOFError                 = "eof_error"
	FailureGenericTimeoutError      = "generic_timeout_error"
	FailureHostUnreachable          = "host_unreachable"
	FailureInterrupted              = "interrupted"
	FailureNetworkUnreachable       = "network_unreachable"
)

// We use these strings to string-match errors in the standard library
// and map such errors to failure strings.
const (
	DNSNoSuchHostSuffix        = "no such host"
	DNSServerMisbehavingSuffix = "server misbehaving"
	DNSNoAnswerSuffix          = "no answer from DNS server"
)

// These errors are returned by the DNS transports and by the decoder. Their
// suffix matches the equivalent unexported errors used by the Go standard library.
var (
	ErrOODNSNoSuchHost          = fmt.Errorf("oodns: %s", DNSNoSuchHostSuffix)
	ErrOODNSRefused             = errors.New("oodns: refused")
	ErrOODNSServfail            = errors.New("oodns: servfail")
	ErrOODNSMisbehaving         = fmt.Errorf("oodns: %s", DNSServerMisbehavingSuffix)
	ErrOODNSNoAnswer            = fmt.Errorf("oodns: %s", DNSNoAnswerSuffix)
	ErrOODNSMalformedReply      = errors.New("oodns: malformed reply")
	ErrDNSReplyWithWrongQueryID = errors.New("oodns: reply with wrong query ID")
)

// ClassifyResolverError maps an error occurred while resolving a domain
// to a failure string. If no mapping exists, it returns a string like
// "unknown_failure: XXX" where XXX is the original error string.
//
// The order of the checks matters: the DNS sentinel errors come first
// because they are the most specific, then system call errors, then
// timeouts, and finally the errors we can only match by suffix.
func ClassifyResolverError(err error) string {
	switch {
	case errors.Is(err, ErrOODNSNoSuchHost):
		return FailureDNSNXDOMAINError
	case errors.Is(err, ErrOODNSRefused):
		return FailureDNSRefusedError
	case errors.Is(err, ErrOODNSServfail):
		return FailureDNSServfailError
	case errors.Is(err, ErrOODNSMisbehaving):
		return FailureDNSServerMisbehaving
	case errors.Is(err, ErrOODNSNoAnswer):
		return FailureDNSNoAnswer
	case errors.Is(err, ErrOODNSMalformedReply):
		return FailureDNSMalformedReply
	case errors.Is(err, ErrDNSReplyWithWrongQueryID):
		return FailureDNSReplyWithWrongQueryID
	}
	if failure := classifySyscallError(err); failure != "" {
		return failure
	}
	if errors.Is(err, context.Canceled) {
		return FailureInterrupted
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureGenericTimeoutError
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureGenericTimeoutError
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return FailureEOFError
	}
	if failure := classifyWithStringSuffix(err); failure != "" {
		return failure
	}
	return fmt.Sprintf("unknown_failure: %s", err.Error())
}

// classifySyscallError maps system call errors to failure strings and
// returns an empty string when the error is not a known system call error.
func classifySyscallError(err error) string {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return ""
	}
	switch errno {
	case syscall.ECONNREFUSED:
		return FailureConnectionRefused
	case syscall.ECONNRESET:
		return FailureConnectionReset
	case syscall.EHOSTUNREACH:
		return FailureHostUnreachable
	case syscall.ENETUNREACH:
		return FailureNetworkUnreachable
	case syscall.ETIMEDOUT:
		return FailureGenericTimeoutError
	default:
		return ""
	}
}

// classifyWithStringSuffix is a subset of ClassifyResolverError that
// performs classification by looking at error suffixes. This function
// will return an empty string if it cannot classify the error.
func classifyWithStringSuffix(err error) string {
	s := err.Error()
	if strings.HasSuffix(s, "operation was canceled") {
		return FailureInterrupted
	}
	if strings.HasSuffix(s, "i/o timeout") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, DNSNoSuchHostSuffix) {
		return FailureDNSNXDOMAINError
	}
	if strings.HasSuffix(s, DNSServerMisbehavingSuffix) {
		return FailureDNSServerMisbehaving
	}
	if strings.HasSuffix(s, DNSNoAnswerSuffix) {
		return FailureDNSNoAnswer
	}
	return ""
}
