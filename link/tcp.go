package link

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/encodeous/chainsdn/state"
	"github.com/pkg/errors"
)

// Listen opens the controller's TCP listener on every interface.
func Listen(ctx context.Context, port uint16) (net.Listener, error) {
	config := net.ListenConfig{}
	listener, err := config.Listen(ctx, "tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on port %d", port)
	}
	return listener, nil
}

// Connect dials the controller, retrying with exponential backoff until cfg.MaxRetries is exhausted.
func Connect(ctx context.Context, addr string, cfg state.ConnectCfg, log *slog.Logger) (*StreamLink, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval
	b.MaxElapsedTime = 0

	dialer := net.Dialer{Timeout: time.Second * 5}
	attempt := func() (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, errors.Wrapf(err, "dial %s", addr)
		}
		return conn, nil
	}
	notify := func(err error, next time.Duration) {
		log.Warn("controller not reachable, retrying", "addr", addr, "in", next, "err", err)
	}

	conn, err := backoff.RetryNotifyWithData(attempt,
		backoff.WithContext(backoff.WithMaxRetries(b, cfg.MaxRetries), ctx), notify)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", state.ErrConnectFailed, err)
	}
	return NewStreamLink(conn), nil
}
