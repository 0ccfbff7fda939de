package presentation

import (
	"fmt"
	"io"
	"strings"

	"isoflash/internal/app"
	"isoflash/internal/domain"
	"isoflash/internal/eta"
)

// Printer writes the flash pipeline's events as plain lines. It satisfies
// app.Observer. DryRun changes the completion line since nothing was written.
type Printer struct {
	Writer  io.Writer
	Verbose bool
	DryRun  bool
}

func (p Printer) Phase(phase domain.Phase, err error) {
	switch phase {
	case domain.PhaseUnmounting:
		fmt.Fprintln(p.Writer, "\n💾 Preparing the USB drive...")
	case domain.PhaseWriting:
		fmt.Fprintln(p.Writer)
	case domain.PhaseFinalizing:
		fmt.Fprintln(p.Writer, "\n💾 Finalizing the process...")
	case domain.PhaseComplete:
		if p.DryRun {
			fmt.Fprintln(p.Writer, "\n🔍 Dry run complete. Nothing was written to the USB drive.")
			return
		}
		fmt.Fprintln(p.Writer, "\n🎉 Bootable USB installer created successfully!")
	case domain.PhaseFailed:
		if p.Verbose && err != nil {
			fmt.Fprintf(p.Writer, "Verbose: flash failed: %v\n", err)
		}
	}
}

func (p Printer) Step(message string) {
	fmt.Fprintf(p.Writer, "🔄 %s\n", message)
}

// Line echoes a raw status line from the copy tool.
func (p Printer) Line(line string) {
	fmt.Fprintln(p.Writer, line)
}

func (p Printer) Progress(pr app.Progress) {
	fmt.Fprintf(p.Writer, "⏳ Estimated time remaining: %s\n", eta.Format(pr.Remaining))
	if p.Verbose {
		fmt.Fprintf(p.Writer, "Verbose: %s of %s after %s\n",
			FormatBytes(pr.Sample.Bytes), FormatBytes(pr.Total), pr.Elapsed.Round(1e6))
	}
}

// PrintDisks shows the device listing verbatim.
func (p Printer) PrintDisks(listing string) {
	fmt.Fprintln(p.Writer, "\n🔍 Listing available disks...")
	fmt.Fprintln(p.Writer, strings.TrimRight(listing, "\n"))
}

func (p Printer) PrintImages(images []domain.Image) {
	fmt.Fprintln(p.Writer, "Image files:")
	for _, line := range FormatImages(images) {
		fmt.Fprintf(p.Writer, "  %s\n", line)
	}
}

func (p Printer) PrintSummary(image domain.Image, device string, result app.Result) {
	fmt.Fprintf(p.Writer, "Wrote %s (%s) to %s in %s.\n",
		image.Name, FormatBytes(result.Bytes), device, result.Elapsed.Round(1e6))
}

// FormatImages renders one menu line per image, e.g.
// "win10.iso (5.3 GB, CCCOMA_X64FRE, mbr)".
func FormatImages(images []domain.Image) []string {
	lines := make([]string, 0, len(images))
	for _, image := range images {
		lines = append(lines, FormatImage(image))
	}
	return lines
}

func FormatImage(image domain.Image) string {
	details := []string{FormatBytes(image.Size)}
	if image.Label != "" {
		details = append(details, image.Label)
	}
	if image.PartitionTable != "" {
		details = append(details, image.PartitionTable)
	}
	return fmt.Sprintf("%s (%s)", image.Name, strings.Join(details, ", "))
}

func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
