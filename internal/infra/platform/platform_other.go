//go:build !darwin && !linux

package platform

import (
	"fmt"
	"runtime"
)

const DefaultBlockSize = "4M"

const Supported = false

func New(opts Options) (Toolkit, error) {
	return Toolkit{}, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
}
