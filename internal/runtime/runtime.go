// SPDX-License-Identifier: MIT

// Package runtime wires the input source, arbiter, output sink, injector
// and RPC surface into one running process and owns the process-level
// lifecycle: startup ordering, the shutdown signal wait, and teardown.
package runtime

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/emassey0135/btspeak-key-interceptor/internal/arbiter"
	"github.com/emassey0135/btspeak-key-interceptor/internal/config"
	"github.com/emassey0135/btspeak-key-interceptor/internal/device"
	"github.com/emassey0135/btspeak-key-interceptor/internal/injector"
	"github.com/emassey0135/btspeak-key-interceptor/internal/logger"
	"github.com/emassey0135/btspeak-key-interceptor/internal/rpcapi"
	"github.com/emassey0135/btspeak-key-interceptor/internal/rpcserver"
	"github.com/emassey0135/btspeak-key-interceptor/internal/synkbd"
)

// RuntimeContext holds the shutdown-signal plumbing shared across the
// wired components.
type RuntimeContext struct {
	ShutdownCh chan os.Signal
	Logger     logger.Logger
}

// NewRuntimeContext constructs a RuntimeContext that listens for the two
// signals a daemon is expected to stop on.
func NewRuntimeContext(log logger.Logger) *RuntimeContext {
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)
	return &RuntimeContext{ShutdownCh: shutdownCh, Logger: log}
}

// App owns every long-lived component of the interceptor: the grabbed
// input device, the arbiter that routes its events, the synthetic output
// keyboard, and the RPC surface bound in front of them.
type App struct {
	cfg     config.Config
	Runtime *RuntimeContext

	source  *device.Source
	sink    *synkbd.Sink
	arbiter *arbiter.Arbiter
	rpc     *rpcserver.Server
}

// New constructs an App from cfg. Components are created but not opened;
// call Initialize to acquire the physical and synthetic devices.
func New(cfg config.Config, log logger.Logger) *App {
	return &App{
		cfg:     cfg,
		Runtime: NewRuntimeContext(log),
		source:  device.New(cfg.InputDeviceName, log, cfg.ChannelCapacity),
		sink:    synkbd.New(cfg.OutputDeviceName, log),
	}
}

// Initialize grabs the physical keyboard, creates the synthetic keyboard,
// and wires the arbiter and RPC surface on top of them. Nothing is
// started (no input is read, no RPC listener is bound) until RunAndWait.
func (a *App) Initialize() error {
	a.Runtime.Logger.Info("Opening input device %q...", a.cfg.InputDeviceName)
	if err := a.source.Open(); err != nil {
		return fmt.Errorf("failed to open input device: %w", err)
	}

	outputCodes := make([]uint16, 0, len(device.RecognizedCodes()))
	for _, c := range device.RecognizedCodes() {
		outputCodes = append(outputCodes, uint16(c))
	}
	a.Runtime.Logger.Info("Creating synthetic output device %q...", a.cfg.OutputDeviceName)
	if err := a.sink.Open(outputCodes); err != nil {
		_ = a.source.Close()
		return fmt.Errorf("failed to create output device: %w", err)
	}

	a.arbiter = arbiter.New(a.sink, a.Runtime.Logger, a.cfg.ChannelCapacity)
	inj := injector.New(a.sink)
	svc := rpcapi.New(a.arbiter, inj, a.Runtime.Logger)
	a.rpc = rpcserver.New(a.cfg.RPCAddress, svc, a.Runtime.Logger)

	a.Runtime.Logger.Info("Initialization complete")
	return nil
}

// RunAndWait starts routing device events through the arbiter and serving
// the RPC surface, then blocks until a shutdown signal arrives.
func (a *App) RunAndWait() error {
	a.Runtime.Logger.Info("Starting interceptor...")

	events := a.source.Events()
	go a.arbiter.Run(events)

	if err := a.rpc.Start(); err != nil {
		return fmt.Errorf("failed to start RPC surface: %w", err)
	}

	a.Runtime.Logger.Info("btspeak-key-interceptor is ready")

	<-a.Runtime.ShutdownCh
	a.Runtime.Logger.Info("Received shutdown signal")

	return a.Shutdown()
}

// Shutdown releases every acquired device and stops the RPC listener.
// Safe to call once after a successful Initialize.
func (a *App) Shutdown() error {
	a.Runtime.Logger.Info("Shutting down...")

	if a.rpc != nil {
		a.rpc.Stop()
	}
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.Runtime.Logger.Warning("Error closing input device: %v", err)
		}
	}
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			a.Runtime.Logger.Warning("Error closing output device: %v", err)
		}
	}

	a.Runtime.Logger.Info("Shutdown complete")
	return nil
}
