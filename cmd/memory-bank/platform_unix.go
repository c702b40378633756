//go:build unix

package main

import (
	"context"
	"os/signal"
	"syscall"
)

func notifyShutdown(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
}
