// Package shell runs the platform disk utilities.
package shell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"isoflash/internal/logging"
	"isoflash/internal/progress"
)

// stderrTail bounds how many stderr lines a streamed command keeps for its error.
const stderrTail = 8

// defaultWaitDelay bounds how long a cancelled command may take to exit.
const defaultWaitDelay = 5 * time.Second

// Command describes one invocation. Success, when set, is printed after a
// zero exit status.
type Command struct {
	Name    string
	Args    []string
	Success string
	Sudo    bool
}

func (c Command) argv() (string, []string) {
	if c.Sudo {
		return "sudo", append([]string{c.Name}, c.Args...)
	}
	return c.Name, c.Args
}

func (c Command) String() string {
	name, args := c.argv()
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}

// CommandError is returned when a command could not start or exited non-zero.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (e *CommandError) StderrText() string {
	return e.Stderr
}

// Runner executes commands synchronously. Out receives success messages and
// may be nil. With DryRun set, commands are logged and reported as successful
// without being started. WaitDelay overrides how long a cancelled command may
// take to exit.
type Runner struct {
	Logger    logging.Logger
	Out       io.Writer
	Stdin     io.Reader
	DryRun    bool
	WaitDelay time.Duration
}

// Run executes cmd and returns its standard output.
func (r Runner) Run(ctx context.Context, cmd Command) (string, error) {
	if r.DryRun {
		r.Logger.Infof("Would run: %s", cmd)
		return "", nil
	}
	name, args := cmd.argv()
	r.Logger.Verbosef("Running: %s", cmd)

	c := exec.CommandContext(ctx, name, args...)
	r.interruptOnCancel(c)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if cmd.Sudo {
		c.Stdin = r.stdin()
	}

	if err := c.Run(); err != nil {
		return stdout.String(), newCommandError(cmd, err, stderr.String())
	}
	r.success(cmd)
	return stdout.String(), nil
}

// Stream starts cmd and hands every non-empty stderr line to onLine as soon as
// it is read. Lines are split on "\n" and "\r".
func (r Runner) Stream(ctx context.Context, cmd Command, onLine func(string)) error {
	if r.DryRun {
		r.Logger.Infof("Would run: %s", cmd)
		return nil
	}
	name, args := cmd.argv()
	r.Logger.Verbosef("Running: %s", cmd)

	c := exec.CommandContext(ctx, name, args...)
	r.interruptOnCancel(c)
	c.Stdout = io.Discard
	if cmd.Sudo {
		c.Stdin = r.stdin()
	}
	// An io.Pipe instead of StderrPipe: Wait closes it after WaitDelay even
	// when a grandchild still holds the write end.
	pr, pw := io.Pipe()
	c.Stderr = pw
	if err := c.Start(); err != nil {
		pw.Close()
		return newCommandError(cmd, err, "")
	}
	waited := make(chan error, 1)
	go func() {
		err := c.Wait()
		pw.Close()
		waited <- err
	}()

	var tail []string
	scanner := bufio.NewScanner(pr)
	scanner.Split(progress.ScanLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tail = append(tail, line)
		if len(tail) > stderrTail {
			tail = tail[1:]
		}
		if onLine != nil {
			onLine(line)
		}
	}
	scanErr := scanner.Err()
	// Unblock the copy goroutine if scanning stopped early.
	pr.Close()

	if err := <-waited; err != nil {
		return newCommandError(cmd, err, strings.Join(tail, "\n"))
	}
	if scanErr != nil {
		return newCommandError(cmd, scanErr, strings.Join(tail, "\n"))
	}
	r.success(cmd)
	return nil
}

// interruptOnCancel makes context cancellation send SIGINT instead of
// SIGKILL, which sudo relays to the command it runs. A process still alive
// after WaitDelay is killed and its pipes are closed.
func (r Runner) interruptOnCancel(c *exec.Cmd) {
	c.Cancel = func() error {
		return c.Process.Signal(os.Interrupt)
	}
	c.WaitDelay = r.WaitDelay
	if c.WaitDelay <= 0 {
		c.WaitDelay = defaultWaitDelay
	}
}

func (r Runner) stdin() io.Reader {
	if r.Stdin != nil {
		return r.Stdin
	}
	return os.Stdin
}

func (r Runner) success(cmd Command) {
	if cmd.Success == "" || r.Out == nil {
		return
	}
	fmt.Fprintf(r.Out, "✓ %s\n", cmd.Success)
}

func newCommandError(cmd Command, err error, stderr string) error {
	ce := &CommandError{
		Command: cmd.String(),
		Stderr:  strings.TrimSpace(stderr),
		Err:     err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		ce.ExitCode = exitErr.ExitCode()
	}
	return ce
}
