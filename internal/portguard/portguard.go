// Package portguard detects processes holding the bridge port and, when
// asked, terminates them so the bridge can bind.
//
//	guard := portguard.New(&portguard.Config{Logger: log})
//	if err := guard.Check(8765); err != nil {
//	    err = guard.Free(ctx, 8765)
//	}
//
// Holders are found with `lsof -ti tcp:<port>`. Free sends SIGTERM, waits
// up to GracePeriod for the port to become bindable, then sends SIGKILL.
package portguard

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/wagiedev/browser-bridge-go/internal/errors"
)

const (
	// DefaultGracePeriod is how long Free waits after SIGTERM.
	DefaultGracePeriod = 3 * time.Second

	// LookupTimeout bounds a single lsof run.
	LookupTimeout = 5 * time.Second

	pollInterval = 100 * time.Millisecond
)

// Config holds port guard settings.
type Config struct {
	// LsofPath is an explicit lsof binary. If empty, PATH is searched.
	LsofPath string

	// GracePeriod between SIGTERM and SIGKILL. Zero uses DefaultGracePeriod.
	GracePeriod time.Duration

	// Logger is optional.
	Logger *slog.Logger
}

// Guard checks and frees the listening port.
type Guard struct {
	cfg Config
	log *slog.Logger
}

// New creates a Guard.
func New(cfg *Config) *Guard {
	if cfg == nil {
		cfg = &Config{}
	}

	c := *cfg
	if c.GracePeriod <= 0 {
		c.GracePeriod = DefaultGracePeriod
	}

	log := c.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	}

	return &Guard{
		cfg: c,
		log: log.With("component", "portguard"),
	}
}

// Check returns a PortInUseError when the loopback port cannot be bound.
func (g *Guard) Check(port int) error {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if stderrors.Is(err, syscall.EADDRINUSE) {
			return &errors.PortInUseError{Port: port, Err: err}
		}

		return fmt.Errorf("check port %d: %w", port, err)
	}

	return ln.Close()
}

// FindHolders returns the ids of processes with a socket on port, excluding
// the current process.
func (g *Guard) FindHolders(ctx context.Context, port int) ([]int, error) {
	lsof, err := g.lsofPath()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, LookupTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, lsof, "-ti", "tcp:"+strconv.Itoa(port)).Output()
	if err != nil {
		// lsof exits 1 when nothing matches.
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) && exitErr.ExitCode() == 1 && len(bytes.TrimSpace(output)) == 0 {
			return nil, nil
		}

		g.log.Error("Failed to list port holders", "port", port, "error", err)

		return nil, fmt.Errorf("lsof tcp:%d: %w", port, err)
	}

	return parsePIDs(output), nil
}

// Free terminates the processes holding port. It returns nil once the port
// can be bound, or a PortInUseError if it is still held after SIGKILL.
func (g *Guard) Free(ctx context.Context, port int) error {
	if g.Check(port) == nil {
		return nil
	}

	pids, err := g.FindHolders(ctx, port)
	if err != nil {
		return err
	}

	if len(pids) == 0 {
		g.log.Warn("Port is in use but no holder was found", "port", port)

		return g.Check(port)
	}

	g.log.Info("Terminating port holders", "port", port, "pids", pids)
	g.signal(pids, syscall.SIGTERM)

	if g.waitFree(ctx, port, g.cfg.GracePeriod) {
		g.log.Info("Port freed", "port", port)

		return nil
	}

	g.log.Warn("Port holders ignored SIGTERM, killing", "port", port, "pids", pids)
	g.signal(pids, syscall.SIGKILL)

	if g.waitFree(ctx, port, time.Second) {
		g.log.Info("Port freed", "port", port)

		return nil
	}

	return g.Check(port)
}

func (g *Guard) signal(pids []int, sig syscall.Signal) {
	for _, pid := range pids {
		proc, err := os.FindProcess(pid)
		if err != nil {
			continue
		}

		if err := proc.Signal(sig); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
			g.log.Warn("Failed to signal port holder", "pid", pid, "signal", sig.String(), "error", err)
		}
	}
}

// waitFree polls until the port binds, d elapses, or ctx is done.
func (g *Guard) waitFree(ctx context.Context, port int, d time.Duration) bool {
	deadline := time.NewTimer(d)
	defer deadline.Stop()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if g.Check(port) == nil {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return g.Check(port) == nil
		case <-ticker.C:
		}
	}
}

func (g *Guard) lsofPath() (string, error) {
	if g.cfg.LsofPath != "" {
		return g.cfg.LsofPath, nil
	}

	path, err := exec.LookPath("lsof")
	if err != nil {
		return "", fmt.Errorf("find lsof: %w", err)
	}

	return path, nil
}

func parsePIDs(output []byte) []int {
	self := os.Getpid()
	seen := make(map[int]bool)

	var pids []int

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		pid, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil || pid <= 0 || pid == self || seen[pid] {
			continue
		}

		seen[pid] = true
		pids = append(pids, pid)
	}

	return pids
}
