//go:build darwin

package platform

// DefaultBlockSize is the dd block size used when none is configured.
const DefaultBlockSize = "4m"

const Supported = true

// New returns diskutil based operations.
func New(opts Options) (Toolkit, error) {
	opts, err := validate(opts)
	if err != nil {
		return Toolkit{}, err
	}
	return Toolkit{
		Lister:    CommandLister{Runner: opts.Runner, Name: "diskutil", Args: []string{"list"}},
		Unmounter: CommandUnmounter{Runner: opts.Runner, Name: "diskutil", Args: []string{"unmountDisk"}},
		Flusher:   SyncFlusher{Runner: opts.Runner},
		Ejecter:   CommandEjecter{Runner: opts.Runner, Name: "diskutil", Args: []string{"eject"}},
		Copier:    DDCopier{Runner: opts.Runner, BlockSize: opts.BlockSize, Sudo: opts.Sudo},
	}, nil
}
