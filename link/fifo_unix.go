//go:build unix

package link

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// openFifo opens path for reading and writing without blocking, so the link exists
// before the neighbour does and reads are served by the runtime poller.
func openFifo(path string) (*os.File, error) {
	err := unix.Mkfifo(path, 0666)
	if err != nil && !errors.Is(err, unix.EEXIST) {
		return nil, errors.Wrapf(err, "mkfifo %s", path)
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open fifo %s", path)
	}
	return os.NewFile(uintptr(fd), path), nil
}
