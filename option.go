package sqlloader

import (
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/xerrors"
)

// Option configures Loader.
type Option interface {
	apply(*Loader) error
}

type optionFunc func(*Loader) error

func (f optionFunc) apply(l *Loader) error {
	return f(l)
}

// WithPrettyLogging configures Loader to print human friendly logs.
func WithPrettyLogging() Option {
	return optionFunc(func(l *Loader) error {
		l.prettyLogging = true
		return nil
	})
}

// WithLogLevel sets the log level such as "debug", "info" or "error".
func WithLogLevel(level string) Option {
	return optionFunc(func(l *Loader) error {
		lv, err := zerolog.ParseLevel(level)
		if err != nil {
			return xerrors.Errorf("invalid log level %q: %w", level, err)
		}
		l.logLevel = lv
		return nil
	})
}

// WithLogWriter sets the destination of logs. Defaults to stderr.
func WithLogWriter(w io.Writer) Option {
	return optionFunc(func(l *Loader) error {
		l.logWriter = w
		return nil
	})
}

// WithNotifier sends the result of every load to n.
func WithNotifier(n Notifier) Option {
	return optionFunc(func(l *Loader) error {
		l.notifier = n
		return nil
	})
}
