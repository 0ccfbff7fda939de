package platform

import (
	"context"
	"errors"
	"strings"
	"testing"

	"isoflash/internal/infra/shell"
)

type mockRunner struct {
	commands []string
	lines    []string
	err      error
}

func (m *mockRunner) Run(ctx context.Context, cmd shell.Command) (string, error) {
	m.commands = append(m.commands, cmd.String())
	return "/dev/disk0 (internal)\n/dev/disk3 (external, physical)\n", m.err
}

func (m *mockRunner) Stream(ctx context.Context, cmd shell.Command, onLine func(string)) error {
	m.commands = append(m.commands, cmd.String())
	for _, line := range m.lines {
		onLine(line)
	}
	return m.err
}

func TestDDCopierCommand(t *testing.T) {
	runner := &mockRunner{lines: []string{"1 bytes copied", "2 bytes copied"}}
	copier := DDCopier{Runner: runner, BlockSize: "4M", Sudo: true, Extra: []string{"conv=fsync"}}

	var got []string
	if err := copier.Copy(context.Background(), "win10.iso", "/dev/sdb", func(line string) { got = append(got, line) }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "sudo dd if=win10.iso of=/dev/sdb bs=4M status=progress conv=fsync"
	if runner.commands[0] != want {
		t.Fatalf("expected %q, got %q", want, runner.commands[0])
	}
	if len(got) != 2 {
		t.Fatalf("expected lines to be forwarded, got %v", got)
	}
}

func TestCommandAdaptersPassDeviceLast(t *testing.T) {
	runner := &mockRunner{}
	ctx := context.Background()

	if err := (CommandUnmounter{Runner: runner, Name: "diskutil", Args: []string{"unmountDisk"}}).Unmount(ctx, "/dev/disk3"); err != nil {
		t.Fatalf("unmount: %v", err)
	}
	if err := (CommandEjecter{Runner: runner, Name: "diskutil", Args: []string{"eject"}}).Eject(ctx, "/dev/disk3"); err != nil {
		t.Fatalf("eject: %v", err)
	}
	if err := (SyncFlusher{Runner: runner}).Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	want := "diskutil unmountDisk /dev/disk3|diskutil eject /dev/disk3|sync"
	if got := strings.Join(runner.commands, "|"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestCommandListerReturnsRawOutput(t *testing.T) {
	runner := &mockRunner{}
	out, err := CommandLister{Runner: runner, Name: "diskutil", Args: []string{"list"}}.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "/dev/disk3 (external, physical)") {
		t.Fatalf("expected verbatim output, got %q", out)
	}
}

func TestEjectFailurePropagates(t *testing.T) {
	runner := &mockRunner{err: errors.New("exit status 1")}
	err := CommandEjecter{Runner: runner, Name: "eject"}.Eject(context.Background(), "/dev/sdb")
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewRequiresRunner(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error without runner")
	}
}

func TestNewUsesDefaultBlockSize(t *testing.T) {
	if !Supported {
		t.Skip("platform not supported")
	}
	toolkit, err := New(Options{Runner: &mockRunner{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toolkit.Copier.BlockSize != DefaultBlockSize {
		t.Fatalf("expected default block size, got %q", toolkit.Copier.BlockSize)
	}
}
