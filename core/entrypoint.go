package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"reflect"
	"runtime"
	"time"

	"github.com/encodeous/chainsdn/perf"
	"github.com/encodeous/chainsdn/state"
	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

// Options control how a node is attached to its surroundings.
type Options struct {
	Level slog.Level
	// LogOutput receives console logs, os.Stderr when nil
	LogOutput io.Writer
	Out       io.Writer
	In        io.Reader
	// Signals installs the SIGINT, SIGTERM and SIGUSR1 handlers
	Signals bool
	// Started is called with the node's Env once its modules are initialized
	Started func(e *state.Env)
}

func setupDebugging(e *state.Env) {
	if e.DebugAddr == "" {
		return
	}
	server := &http.Server{Addr: e.DebugAddr, Handler: http.DefaultServeMux}
	go func() {
		e.Log.Info("serving debug endpoints", "addr", e.DebugAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Log.Warn("debug server stopped", "err", err)
		}
	}()
	go func() {
		<-e.Context.Done()
		server.Close()
	}()
}

func newLogger(name string, cfg state.LocalCfg, opts Options) (*slog.Logger, io.Closer, error) {
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(out, &tint.Options{
			Level:        opts.Level,
			AddSource:    false,
			CustomPrefix: name,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	var closer io.Closer
	if cfg.LogPath != "" {
		err := os.MkdirAll(path.Dir(cfg.LogPath), 0700)
		if err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(cfg.LogPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			return nil, nil, err
		}
		closer = f
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: opts.Level}).
			WithAttrs([]slog.Attr{slog.String("node", name)}))
	}
	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// StartController runs the controller until it is told to exit. Orderly exits return nil.
func StartController(ccfg state.ControllerCfg, lcfg state.LocalCfg, opts Options) error {
	return start("cont", lcfg, opts, NewController(ccfg))
}

// StartSwitch runs a switch until it is told to exit or loses its controller. Orderly exits return nil.
func StartSwitch(scfg state.SwitchCfg, lcfg state.LocalCfg, opts Options) error {
	return start(scfg.Name(), lcfg, opts, NewSwitch(scfg, lcfg.PendingTTL))
}

func start(name string, lcfg state.LocalCfg, opts Options, modules ...state.Module) error {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	logger, logFile, err := newLogger(name, lcfg, opts)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	dispatch := make(chan func(env *state.State) error, state.DispatchBuffer)
	s := state.State{
		Modules: make(map[string]state.Module),
		Env: &state.Env{
			Context:         ctx,
			Cancel:          cancel,
			DispatchChannel: dispatch,
			LocalCfg:        lcfg,
			Log:             logger,
			Name:            name,
			Out:             opts.Out,
			In:              opts.In,
		},
	}

	if opts.Signals {
		watchSignals(s.Env)
	}
	setupDebugging(s.Env)

	s.Log.Debug("init modules")
	err = initModules(&s, modules)
	if err != nil {
		s.Log.Error("failed to start", "err", err)
		s.Cancel(err)
		Stop(&s)
		return err
	}
	s.Log.Debug("init modules complete")
	if opts.Started != nil {
		opts.Started(s.Env)
	}
	startConsole(s.Env)

	MainLoop(&s, dispatch)

	cause := context.Cause(ctx)
	if state.IsOrderlyExit(cause) || errors.Is(cause, context.Canceled) {
		return nil
	}
	return cause
}

func initModules(s *state.State, modules []state.Module) error {
	for _, module := range modules {
		s.Modules[reflect.TypeOf(module).String()] = module
		if err := module.Init(s); err != nil {
			return err
		}
	}
	return nil
}

func MainLoop(s *state.State, dispatch <-chan func(*state.State) error) {
	s.Log.Debug("started main loop")
	s.Started.Store(true)
	for {
		select {
		case fun := <-dispatch:
			start := time.Now()
			err := fun(s)
			if err != nil {
				if state.IsOrderlyExit(err) {
					s.Log.Info("exiting", "reason", err)
				} else {
					s.Log.Error("error occurred during dispatch", "error", err)
				}
				s.Cancel(err)
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > state.SlowDispatch {
				s.Log.Warn("dispatch took a long time!", "fun", runtime.FuncForPC(reflect.ValueOf(fun).Pointer()).Name(), "elapsed", elapsed, "len", len(dispatch))
			}
			if err != nil {
				goto endLoop
			}
		case <-s.Context.Done():
			goto endLoop
		}
	}
endLoop:
	s.Log.Info("stopped main loop", "reason", context.Cause(s.Context).Error())
	Stop(s)
}

// Stop prints the final status and releases every module. It must run on the main loop goroutine.
func Stop(s *state.State) {
	if s.Stopping.Swap(true) {
		return // don't stop twice
	}
	s.Cancel(context.Canceled)
	if s.Started.Load() {
		Dump(s)
	}
	s.Log.Debug("cleaning up modules")
	for moduleName, module := range s.Modules {
		err := module.Cleanup(s)
		if err != nil {
			s.Log.Error("error occurred during Stop: ", "module", moduleName, "error", err)
		}
	}
	s.Log.Info("stopped")
}
