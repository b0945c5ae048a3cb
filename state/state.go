package state

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
)

type Module interface {
	Init(s *State) error
	Cleanup(s *State) error
}

// State access must be done only on a single Goroutine
type State struct {
	*Env
	Modules map[string]Module
}

// Env can be read from any Goroutine
type Env struct {
	DispatchChannel chan<- func(s *State) error
	LocalCfg
	Context  context.Context
	Cancel   context.CancelCauseFunc
	Log      *slog.Logger
	Name     string    // cont, sw1 .. sw7
	Out      io.Writer // status dumps are written here
	In       io.Reader // interactive commands, nil disables the console
	Started  atomic.Bool
	Stopping atomic.Bool
}
