// Package runner owns the process lifecycle of the CLI: startup banner,
// running the conversation task, and draining observers on the way out.
package runner

import (
	"bytes"
	"context"
	"io"

	"github.com/dimiro1/banner"
)

type State int

const (
	StateNew State = iota
	StateStarting
	StateRunning
	StateDraining
	StateStopped
)

type Runner interface {
	Run(ctx context.Context, task func(ctx context.Context) error) error
	Stop() error
	State() State
}

type Hooks struct {
	OnStart func()
	OnStop  func()
}

// Drainer flushes whatever the task left buffered; the lifecycle runner
// calls it once while draining.
type Drainer interface {
	Drain() error
}

const Version = "dev"

// PrintBanner writes the startup banner. The CLI points it at stderr so
// stdout stays reserved for the answer.
func PrintBanner(w io.Writer) {
	tpl := "{{ .Title \"TANYA\" \"\" 0 }}\nVersion: " + Version + "\n"
	banner.Init(w, true, false, bytes.NewBufferString(tpl))
}
