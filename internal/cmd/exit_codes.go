package cmd

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/spf13/pflag"

	"github.com/godigitalafrica/gdchat/internal/api"
	"github.com/godigitalafrica/gdchat/internal/config"
	"github.com/godigitalafrica/gdchat/internal/relay"
	"github.com/godigitalafrica/gdchat/internal/session"
)

const (
	exitOK          = 0
	exitGeneric     = 1
	exitUsage       = 2
	exitAuth        = 3
	exitConfig      = 4
	exitConnection  = 5
	exitRateLimited = 6
	exitServer      = 7
)

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if handled, ok := err.(*handledError); ok {
		if handled.exitCode != 0 {
			return handled.exitCode
		}
		err = handled.err
	}

	var authErr *api.AuthError
	if errors.As(err, &authErr) {
		return exitAuth
	}
	if errors.Is(err, config.ErrNotConfigured) {
		return exitConfig
	}
	if api.IsRateLimitError(err) {
		return exitRateLimited
	}
	if api.IsCircuitBreakerError(err) {
		return exitServer
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 500 {
			return exitServer
		}
		return exitGeneric
	}
	if isConnectionError(err) {
		return exitConnection
	}
	if isUsageError(err) {
		return exitUsage
	}
	return exitGeneric
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var transportErr *relay.TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	if errors.Is(err, relay.ErrPingTimeout) ||
		errors.Is(err, session.ErrChannelUnavailable) ||
		errors.Is(err, session.ErrNotSendable) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "tls") ||
		strings.Contains(msg, "certificate") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "timeout")
}

func isUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	indicators := []string{
		"unknown command",
		"unknown flag",
		"unknown shorthand flag",
		"flag needs an argument",
		"flag provided but not defined",
		"requires at least",
		"requires exactly",
		"invalid argument",
		"invalid value",
		"must be",
		"is required",
		"missing",
	}
	for _, indicator := range indicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}
