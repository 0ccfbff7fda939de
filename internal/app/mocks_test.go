package app

import (
	"context"
	"io/fs"
	"time"

	"isoflash/internal/domain"
)

type mockFS struct {
	entries []mockEntry
}

type mockEntry struct {
	name  string
	isDir bool
	size  int64
	mode  fs.FileMode
}

func (m mockFS) ReadDir(dir string) ([]fs.DirEntry, error) {
	out := make([]fs.DirEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		out = append(out, mockDirEntry{name: entry.name, isDir: entry.isDir})
	}
	return out, nil
}

func (m mockFS) Stat(path string) (fs.FileInfo, error) {
	for _, entry := range m.entries {
		if path == entry.name || hasBase(path, entry.name) {
			mode := entry.mode
			if entry.isDir {
				mode |= fs.ModeDir
			}
			return mockFileInfo{name: entry.name, size: entry.size, mode: mode}, nil
		}
	}
	return nil, fs.ErrNotExist
}

func hasBase(path, name string) bool {
	return len(path) > len(name) && path[len(path)-len(name)-1:] == "/"+name
}

type mockDirEntry struct {
	name  string
	isDir bool
}

func (m mockDirEntry) Name() string               { return m.name }
func (m mockDirEntry) IsDir() bool                { return m.isDir }
func (m mockDirEntry) Type() fs.FileMode          { return 0 }
func (m mockDirEntry) Info() (fs.FileInfo, error) { return nil, nil }

type mockFileInfo struct {
	name string
	size int64
	mode fs.FileMode
}

func (m mockFileInfo) Name() string       { return m.name }
func (m mockFileInfo) Size() int64        { return m.size }
func (m mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m mockFileInfo) ModTime() time.Time { return time.Time{} }
func (m mockFileInfo) IsDir() bool        { return m.mode.IsDir() }
func (m mockFileInfo) Sys() interface{}   { return nil }

type mockInspector struct {
	labels map[string]string
	err    error
}

func (m mockInspector) Inspect(path string) (string, string, error) {
	for name, label := range m.labels {
		if hasBase(path, name) {
			return label, "mbr", m.err
		}
	}
	return "", "", m.err
}

// fakeClock advances only when a test moves it.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Set(elapsed time.Duration) {
	c.now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(elapsed)
}

type step struct {
	at   time.Duration
	line string
}

type mockDevice struct {
	clock      *fakeClock
	steps      []step
	unmountErr error
	copyErr    error
	flushErr   error
	ejectErr   error
	calls      []string
}

func (m *mockDevice) Unmount(ctx context.Context, device string) error {
	m.calls = append(m.calls, "unmount "+device)
	return m.unmountErr
}

func (m *mockDevice) Copy(ctx context.Context, src, device string, onLine func(string)) error {
	m.calls = append(m.calls, "copy "+src+" "+device)
	for _, s := range m.steps {
		m.clock.Set(s.at)
		onLine(s.line)
	}
	return m.copyErr
}

func (m *mockDevice) Flush(ctx context.Context) error {
	m.calls = append(m.calls, "flush")
	return m.flushErr
}

func (m *mockDevice) Eject(ctx context.Context, device string) error {
	m.calls = append(m.calls, "eject "+device)
	return m.ejectErr
}

type recordingObserver struct {
	phases   []domain.Phase
	failure  error
	steps    []string
	lines    []string
	progress []Progress
}

func (r *recordingObserver) Phase(phase domain.Phase, err error) {
	r.phases = append(r.phases, phase)
	if err != nil {
		r.failure = err
	}
}

func (r *recordingObserver) Step(message string) { r.steps = append(r.steps, message) }
func (r *recordingObserver) Line(line string)    { r.lines = append(r.lines, line) }
func (r *recordingObserver) Progress(p Progress) { r.progress = append(r.progress, p) }
