package core

import (
	"io"

	"github.com/encodeous/chainsdn/state"
)

// Dumper is implemented by modules that contribute to the status dump.
type Dumper interface {
	Dump(w io.Writer)
}

// Dump writes every module's status to s.Out. It must run on the main loop.
func Dump(s *state.State) {
	if s.Out == nil {
		return
	}
	for _, module := range s.Modules {
		if d, ok := module.(Dumper); ok {
			d.Dump(s.Out)
		}
	}
}
