package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ocbridge/pkg/logging"

	"github.com/coreos/go-systemd/v22/daemon"
)

// shutdownTimeout bounds the graceful shutdown of both listeners.
const shutdownTimeout = 10 * time.Second

// runServeMode runs the main server and, when enabled, the callback bridge.
//
// Behavior:
//   - Starts the main HTTP server; failure is fatal
//   - Starts the callback bridge; failure is logged and the server keeps running
//   - Notifies systemd once the listeners are up
//   - Blocks until SIGINT, SIGTERM or context cancellation, then shuts down gracefully
func runServeMode(ctx context.Context, services *Services) error {
	if err := services.Server.Start(); err != nil {
		logging.Error("CLI", err, "Failed to start server")
		return err
	}

	bridgeRunning := false
	if services.Bridge != nil {
		if err := services.Bridge.Start(); err != nil {
			logging.Warn("CLI", "Callback bridge unavailable, Operations Center logins will not complete: %v", err)
		} else {
			bridgeRunning = true
		}
	}

	notifySystemd(daemon.SdNotifyReady)
	logging.Info("CLI", "ocbridge started. Press Ctrl+C to stop.")

	// A bridge that dies later is logged by the bridge; the server keeps running
	_ = waitForShutdown(ctx, nil)

	logging.Info("CLI", "--- Shutting down ---")
	notifySystemd(daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if bridgeRunning {
		if err := services.Bridge.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := services.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// runBridgeMode runs the callback bridge alone, for deployments where it lives
// in a separate process from the main server.
func runBridgeMode(ctx context.Context, services *Services) error {
	if err := services.Bridge.Start(); err != nil {
		logging.Error("CLI", err, "Failed to start callback bridge")
		return err
	}

	notifySystemd(daemon.SdNotifyReady)
	logging.Info("CLI", "Callback bridge started. Press Ctrl+C to stop.")

	if err := waitForShutdown(ctx, services.Bridge.Errors()); err != nil {
		return err
	}

	notifySystemd(daemon.SdNotifyStopping)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return services.Bridge.Shutdown(shutdownCtx)
}

// waitForShutdown blocks until a termination signal, context cancellation or
// an error on errs, which is returned.
func waitForShutdown(ctx context.Context, errs <-chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	for {
		select {
		case sig := <-sigChan:
			logging.Info("CLI", "Received %s", sig)
			return nil
		case <-ctx.Done():
			return nil
		case err := <-errs:
			if err != nil {
				return err
			}
		}
	}
}

func notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logging.Warn("CLI", "Failed to notify systemd: %v", err)
		return
	}
	if sent {
		logging.Debug("CLI", "Notified systemd: %s", state)
	}
}
