package app

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"isoflash/internal/domain"
	appErrors "isoflash/internal/errors"
	"isoflash/internal/eta"
)

const gigabyte = int64(1_000_000_000)

func newFlasher(device *mockDevice, observer Observer, size int64) *Flasher {
	return &Flasher{
		FS:        mockFS{entries: []mockEntry{{name: "win10.iso", size: size}}},
		Unmounter: device,
		Copier:    device,
		Flusher:   device,
		Ejecter:   device,
		Estimator: eta.ElapsedPolicy{},
		Observer:  observer,
		Now:       device.clock.Now,
	}
}

func halfwaySteps() []step {
	return []step{
		{at: 0, line: "0 bytes (0 B, 0 B) copied, 0 s, 0 B/s"},
		{at: 5 * time.Second, line: "10+0 records in"},
		{at: 10 * time.Second, line: "500000000 bytes (500 MB, 477 MiB) copied, 10 s, 50.0 MB/s"},
		{at: 20 * time.Second, line: "1000000000 bytes (1.0 GB, 954 MiB) copied, 20 s, 50.0 MB/s"},
	}
}

func TestFlashEstimatesRemainingTime(t *testing.T) {
	clock := &fakeClock{}
	clock.Set(0)
	device := &mockDevice{clock: clock, steps: halfwaySteps()}
	observer := &recordingObserver{}
	flasher := newFlasher(device, observer, gigabyte)

	result, err := flasher.Flash(context.Background(), domain.Image{Name: "win10.iso", Path: "/work/win10.iso"}, "/dev/disk3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(observer.lines) != 4 {
		t.Fatalf("expected every line echoed, got %d", len(observer.lines))
	}
	if len(observer.progress) != 3 {
		t.Fatalf("expected 3 progress samples, got %d", len(observer.progress))
	}
	if !math.IsInf(observer.progress[0].Remaining, 1) {
		t.Fatalf("expected unbounded estimate at 0%%, got %v", observer.progress[0].Remaining)
	}
	if got := observer.progress[1].Remaining; math.Abs(got-10) > 0.001 {
		t.Fatalf("expected ~10s at 50%%, got %v", got)
	}
	if got := observer.progress[2].Remaining; got != 0 {
		t.Fatalf("expected 0s at 100%%, got %v", got)
	}
	if result.Bytes != gigabyte || result.Samples != 3 || result.Elapsed != 20*time.Second {
		t.Fatalf("unexpected result %+v", result)
	}

	wantPhases := []domain.Phase{domain.PhaseUnmounting, domain.PhaseWriting, domain.PhaseFinalizing, domain.PhaseComplete}
	if len(observer.phases) != len(wantPhases) {
		t.Fatalf("unexpected phases %v", observer.phases)
	}
	for i, p := range wantPhases {
		if observer.phases[i] != p {
			t.Fatalf("phase %d: expected %s, got %s", i, p, observer.phases[i])
		}
	}
	if flasher.Phase() != domain.PhaseComplete {
		t.Fatalf("expected complete, got %s", flasher.Phase())
	}

	wantCalls := "unmount /dev/disk3|copy /work/win10.iso /dev/disk3|flush|eject /dev/disk3"
	if got := strings.Join(device.calls, "|"); got != wantCalls {
		t.Fatalf("unexpected calls %q", got)
	}
}

func TestFlashFailsWhenEjectFailsAfterWrite(t *testing.T) {
	clock := &fakeClock{}
	clock.Set(0)
	device := &mockDevice{clock: clock, steps: halfwaySteps(), ejectErr: errors.New("Disk /dev/disk3 couldn't be ejected")}
	observer := &recordingObserver{}
	flasher := newFlasher(device, observer, gigabyte)

	result, err := flasher.Flash(context.Background(), domain.Image{Name: "win10.iso", Path: "/work/win10.iso"}, "/dev/disk3")
	if err == nil {
		t.Fatalf("expected eject failure")
	}
	if appErrors.KindOf(err) != appErrors.CommandFailed {
		t.Fatalf("expected command failure, got %v", err)
	}
	if result.Bytes != gigabyte {
		t.Fatalf("expected the write to have completed, got %+v", result)
	}
	if flasher.Phase() != domain.PhaseFailed {
		t.Fatalf("expected failed phase, got %s", flasher.Phase())
	}
	if observer.failure == nil || observer.phases[len(observer.phases)-1] != domain.PhaseFailed {
		t.Fatalf("expected failure to be observed, got %v", observer.phases)
	}
}

func TestFlashStopsAtFirstFailure(t *testing.T) {
	clock := &fakeClock{}
	clock.Set(0)
	device := &mockDevice{clock: clock, unmountErr: errors.New("Unmount of disk3 failed: at least one volume could not be unmounted")}
	flasher := newFlasher(device, nil, gigabyte)

	_, err := flasher.Flash(context.Background(), domain.Image{Name: "win10.iso", Path: "/work/win10.iso"}, "/dev/disk3")
	if err == nil {
		t.Fatalf("expected unmount failure")
	}
	if len(device.calls) != 1 {
		t.Fatalf("expected nothing after unmount, got %v", device.calls)
	}
	if !strings.Contains(appErrors.UserMessage(err), "unmount failed") {
		t.Fatalf("unexpected user message %q", appErrors.UserMessage(err))
	}
}

func TestFlashCopyFailureSkipsFinalize(t *testing.T) {
	clock := &fakeClock{}
	clock.Set(0)
	device := &mockDevice{clock: clock, copyErr: errors.New("exit status 1")}
	flasher := newFlasher(device, nil, gigabyte)

	_, err := flasher.Flash(context.Background(), domain.Image{Name: "win10.iso", Path: "/work/win10.iso"}, "/dev/disk3")
	if err == nil {
		t.Fatalf("expected copy failure")
	}
	for _, call := range device.calls {
		if call == "flush" || strings.HasPrefix(call, "eject") {
			t.Fatalf("unexpected call after failed copy: %v", device.calls)
		}
	}
}

func TestFlashMissingImage(t *testing.T) {
	clock := &fakeClock{}
	clock.Set(0)
	device := &mockDevice{clock: clock}
	flasher := newFlasher(device, nil, gigabyte)

	_, err := flasher.Flash(context.Background(), domain.Image{Name: "gone.iso", Path: "/work/gone.iso"}, "/dev/disk3")
	if appErrors.KindOf(err) != appErrors.IOFailure {
		t.Fatalf("expected I/O failure, got %v", err)
	}
	if len(device.calls) != 0 {
		t.Fatalf("expected no device calls, got %v", device.calls)
	}
}

func TestFlashMarksCancellation(t *testing.T) {
	clock := &fakeClock{}
	clock.Set(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	device := &mockDevice{clock: clock, unmountErr: context.Canceled}
	flasher := newFlasher(device, nil, gigabyte)

	_, err := flasher.Flash(ctx, domain.Image{Name: "win10.iso", Path: "/work/win10.iso"}, "/dev/disk3")
	if appErrors.KindOf(err) != appErrors.Cancelled {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestFlashWithRatePolicy(t *testing.T) {
	clock := &fakeClock{}
	clock.Set(0)
	device := &mockDevice{clock: clock, steps: halfwaySteps()}
	observer := &recordingObserver{}
	flasher := newFlasher(device, observer, gigabyte)
	flasher.Estimator = eta.RatePolicy{}

	if _, err := flasher.Flash(context.Background(), domain.Image{Name: "win10.iso", Path: "/work/win10.iso"}, "/dev/disk3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsInf(observer.progress[0].Remaining, 1) {
		t.Fatalf("expected unbounded estimate for 0 B/s")
	}
	if got := observer.progress[1].Remaining; got != 10 {
		t.Fatalf("expected 10s at 50 MB/s with 500 MB left, got %v", got)
	}
}
