//go:build !unix

package link

import (
	"os"

	"github.com/pkg/errors"
)

func openFifo(path string) (*os.File, error) {
	return nil, errors.Errorf("named pipes are not supported on this platform: %s", path)
}
