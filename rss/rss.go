// Package rss implements the memory watchdog external collaborator of
// spec.md §1/§6: sampling the current process's resident set size and
// failing fatally once a configured budget is exceeded.
package rss

import (
	"context"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/shirou/gopsutil/v4/process"
)

// Watchdog checks the current process's RSS against a fixed budget.
type Watchdog interface {
	// Check samples RSS and returns a fatal error if over budget.
	Check() error
}

type processWatchdog struct {
	budget uint64
	proc   *process.Process
}

// New returns a Watchdog that samples the current process's RSS via
// gopsutil and fails once it exceeds budgetBytes.
func New(budgetBytes uint64) (Watchdog, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, errors.E(err, "rss: opening self process handle")
	}
	return &processWatchdog{budget: budgetBytes, proc: p}, nil
}

func (w *processWatchdog) Check() error {
	info, err := w.proc.MemoryInfoWithContext(context.Background())
	if err != nil {
		return errors.E(err, "rss: sampling RSS")
	}
	if info.RSS > w.budget {
		return errors.E("rss: resident set size exceeds budget",
			"rss", info.RSS, "budget", w.budget)
	}
	return nil
}

type noopWatchdog struct{}

// NoopWatchdog never fails; used when no budget is configured and by
// tests that don't want a real OS dependency.
var NoopWatchdog Watchdog = noopWatchdog{}

func (noopWatchdog) Check() error { return nil }
