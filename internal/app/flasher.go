package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"isoflash/internal/domain"
	appErrors "isoflash/internal/errors"
	"isoflash/internal/eta"
	"isoflash/internal/logging"
	"isoflash/internal/progress"
)

// Result summarizes a finished write.
type Result struct {
	Bytes   int64
	Samples int
	Elapsed time.Duration
}

// Flasher runs unmount, copy, flush and eject against one device. The first
// failing step ends the run in PhaseFailed; nothing is rolled back.
type Flasher struct {
	FS        FileSystem
	Unmounter Unmounter
	Copier    BlockCopier
	Flusher   Flusher
	Ejecter   Ejecter
	Estimator eta.Estimator
	Observer  Observer
	Logger    logging.Logger
	Now       func() time.Time

	phase domain.Phase
}

func (f *Flasher) Phase() domain.Phase {
	return f.phase
}

func (f *Flasher) Flash(ctx context.Context, image domain.Image, device string) (Result, error) {
	if f.FS == nil || f.Unmounter == nil || f.Copier == nil || f.Flusher == nil || f.Ejecter == nil {
		return Result{}, errors.New("flasher requires FS, Unmounter, Copier, Flusher and Ejecter")
	}
	if f.Estimator == nil {
		f.Estimator = eta.ElapsedPolicy{}
	}
	if f.Observer == nil {
		f.Observer = NopObserver{}
	}
	if f.Now == nil {
		f.Now = time.Now
	}
	f.phase = domain.PhaseNotStarted

	info, err := f.FS.Stat(image.Path)
	if err != nil {
		return Result{}, f.fail(ctx, appErrors.Wrap(appErrors.IOFailure, "stat", image.Path, err))
	}
	total := info.Size()

	f.enter(domain.PhaseUnmounting)
	f.Observer.Step(fmt.Sprintf("Unmounting %s...", device))
	if err := f.Unmounter.Unmount(ctx, device); err != nil {
		return Result{}, f.fail(ctx, appErrors.Wrap(appErrors.CommandFailed, "unmount", device, err))
	}
	f.Observer.Step("USB drive unmounted successfully.")

	f.enter(domain.PhaseWriting)
	f.Observer.Step("Writing image to the USB drive. This process may take several minutes...")
	result := Result{}
	start := f.Now()
	stop := f.Logger.Measure("Writing " + image.Name)
	err = f.Copier.Copy(ctx, image.Path, device, func(line string) {
		f.Observer.Line(line)
		sample, ok := progress.Parse(line)
		if !ok {
			return
		}
		elapsed := f.Now().Sub(start)
		result.Samples++
		if sample.HasBytes {
			result.Bytes = sample.Bytes
		}
		f.Observer.Progress(Progress{
			Sample:    sample,
			Total:     total,
			Elapsed:   elapsed,
			Remaining: f.Estimator.Remaining(total, elapsed, sample),
		})
	})
	stop()
	result.Elapsed = f.Now().Sub(start)
	if err != nil {
		return result, f.fail(ctx, appErrors.Wrap(appErrors.CommandFailed, "write", device, err))
	}
	f.Observer.Step(fmt.Sprintf("Writing complete! Time taken: %.2f seconds.", result.Elapsed.Seconds()))

	f.enter(domain.PhaseFinalizing)
	if err := f.Flusher.Flush(ctx); err != nil {
		return result, f.fail(ctx, appErrors.Wrap(appErrors.CommandFailed, "sync", "", err))
	}
	f.Observer.Step("Data successfully written to the USB drive.")
	if err := f.Ejecter.Eject(ctx, device); err != nil {
		return result, f.fail(ctx, appErrors.Wrap(appErrors.CommandFailed, "eject", device, err))
	}
	f.Observer.Step("USB drive ejected successfully.")

	f.enter(domain.PhaseComplete)
	return result, nil
}

func (f *Flasher) enter(next domain.Phase) {
	if !f.phase.CanTransition(next) {
		f.Logger.Verbosef("Unexpected phase change %s -> %s", f.phase, next)
	}
	f.phase = next
	f.Observer.Phase(next, nil)
}

func (f *Flasher) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		err = appErrors.Wrap(appErrors.Cancelled, "flash", "", err)
	}
	f.phase = domain.PhaseFailed
	f.Observer.Phase(domain.PhaseFailed, err)
	return err
}
