package clipboard

import (
	"errors"
	"time"

	cb "github.com/atotto/clipboard"
)

var ErrUnsupported = errors.New("no clipboard utility available (install xclip, xsel or wl-clipboard)")

// Timeout bounds clipboard tool invocations, which can hang when the
// compositor is not reachable.
const Timeout = 3 * time.Second

func Read() (string, error) {
	if cb.Unsupported {
		return "", ErrUnsupported
	}
	return withTimeout(cb.ReadAll)
}

func Copy(text string) error {
	if cb.Unsupported {
		return ErrUnsupported
	}
	_, err := withTimeout(func() (string, error) {
		return "", cb.WriteAll(text)
	})
	return err
}

func withTimeout(fn func() (string, error)) (string, error) {
	type result struct {
		s   string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		s, err := fn()
		ch <- result{s, err}
	}()
	select {
	case r := <-ch:
		return r.s, r.err
	case <-time.After(Timeout):
		return "", errors.New("clipboard timed out")
	}
}
