//go:build linux

package platform

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jaypipes/ghw"
	"github.com/jaypipes/ghw/pkg/block"
	"golang.org/x/sys/unix"

	"isoflash/internal/infra/shell"
	"isoflash/internal/logging"
)

const DefaultBlockSize = "4M"

const Supported = true

const procMounts = "/proc/mounts"

// New returns operations backed by ghw, umount(2), eject(1) and GNU dd.
func New(opts Options) (Toolkit, error) {
	opts, err := validate(opts)
	if err != nil {
		return Toolkit{}, err
	}
	return Toolkit{
		Lister: BlockLister{
			Fallback: CommandLister{Runner: opts.Runner, Name: "lsblk", Args: []string{"-p", "-o", "NAME,SIZE,TYPE,RM,MOUNTPOINT,MODEL"}},
			Logger:   opts.Logger,
		},
		Unmounter: MountUnmounter{Runner: opts.Runner, Logger: opts.Logger, Sudo: opts.Sudo, DryRun: opts.DryRun, MountTable: procMounts},
		Flusher:   SyncFlusher{Runner: opts.Runner},
		Ejecter:   CommandEjecter{Runner: opts.Runner, Name: "eject", Sudo: opts.Sudo},
		Copier:    DDCopier{Runner: opts.Runner, BlockSize: opts.BlockSize, Sudo: opts.Sudo, Extra: []string{"conv=fsync"}},
	}, nil
}

// BlockLister renders the block devices ghw finds. When ghw cannot read the
// system, the fallback command's output is shown instead.
type BlockLister struct {
	Fallback Lister
	Logger   logging.Logger
}

func (l BlockLister) List(ctx context.Context) (string, error) {
	info, err := ghw.Block()
	if err != nil || len(info.Disks) == 0 {
		l.Logger.Verbosef("ghw block detection unavailable (%v), falling back to lsblk", err)
		if l.Fallback == nil {
			return "", fmt.Errorf("detect block devices: %w", err)
		}
		return l.Fallback.List(ctx)
	}
	return formatDisks(info.Disks), nil
}

func formatDisks(disks []*block.Disk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-15s %10s  %-9s %-6s %s\n", "NAME", "SIZE", "REMOVABLE", "BUS", "MODEL")
	b.WriteString(strings.Repeat("-", 60))
	b.WriteString("\n")
	for _, disk := range disks {
		removable := "no"
		if disk.IsRemovable {
			removable = "yes"
		}
		bus := "-"
		if strings.Contains(disk.BusPath, "usb") {
			bus = "usb"
		}
		sizeGB := float64(disk.SizeBytes) / (1024 * 1024 * 1024)
		fmt.Fprintf(&b, "%-15s %7.2f GB  %-9s %-6s %s\n", "/dev/"+disk.Name, sizeGB, removable, bus, strings.TrimSpace(disk.Vendor+" "+disk.Model))
		for _, part := range disk.Partitions {
			if part.MountPoint == "" {
				continue
			}
			fmt.Fprintf(&b, "  %-13s mounted at %s\n", "/dev/"+part.Name, part.MountPoint)
		}
	}
	return b.String()
}

type mount struct {
	Source string
	Target string
}

// MountUnmounter unmounts every mounted filesystem that lives on the device,
// trying umount(2) first and umount(8) second.
type MountUnmounter struct {
	Runner     CommandRunner
	Logger     logging.Logger
	Sudo       bool
	DryRun     bool
	MountTable string
}

func (u MountUnmounter) Unmount(ctx context.Context, device string) error {
	if resolved := resolveDevice(device); resolved != device {
		u.Logger.Verbosef("%s resolves to %s", device, resolved)
		device = resolved
	}
	f, err := os.Open(u.MountTable)
	if err != nil {
		return fmt.Errorf("read mount table: %w", err)
	}
	mounts, err := mountsOf(f, device)
	f.Close()
	if err != nil {
		return fmt.Errorf("read mount table: %w", err)
	}

	if len(mounts) == 0 {
		u.Logger.Verbosef("%s has no mounted filesystems", device)
		return nil
	}
	for _, m := range mounts {
		if u.DryRun {
			u.Logger.Infof("Would unmount %s from %s", m.Source, m.Target)
			continue
		}
		err := unix.Unmount(m.Target, 0)
		if err == nil {
			u.Logger.Verbosef("Unmounted %s", m.Target)
			continue
		}
		u.Logger.Verbosef("umount(2) %s: %v, retrying with umount", m.Target, err)
		if _, err := u.Runner.Run(ctx, shell.Command{Name: "umount", Args: []string{m.Target}, Sudo: u.Sudo}); err != nil {
			return fmt.Errorf("unmount %s: %w", m.Source, err)
		}
	}
	return nil
}

// mountsOf parses a /proc/mounts style table and returns the entries whose
// source is device or one of its partitions.
func mountsOf(r io.Reader, device string) ([]mount, error) {
	var mounts []mount
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		if !isPartitionOf(fields[0], device) && !isPartitionOf(resolveDevice(fields[0]), device) {
			continue
		}
		mounts = append(mounts, mount{Source: fields[0], Target: unescapeMount(fields[1])})
	}
	return mounts, scanner.Err()
}

// resolveDevice follows symlinks such as /dev/disk/by-id/usb-... to the
// kernel device node. Paths that cannot be resolved are returned unchanged.
func resolveDevice(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return resolved
}

// isPartitionOf matches /dev/sdb, /dev/sdb1 and /dev/mmcblk0p2 for their
// parent device but not /dev/sdbb1.
func isPartitionOf(source, device string) bool {
	if source == device {
		return true
	}
	rest, ok := strings.CutPrefix(source, device)
	if !ok {
		return false
	}
	rest = strings.TrimPrefix(rest, "p")
	if rest == "" {
		return false
	}
	_, err := strconv.Atoi(rest)
	return err == nil
}

// unescapeMount undoes the octal escaping of spaces, tabs and backslashes.
func unescapeMount(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+4 <= len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
