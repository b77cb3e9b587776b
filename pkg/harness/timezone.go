package harness

import (
	"os"
	"time"

	"github.com/TFMV/parity/pkg/errors"
)

// WithTimeZone runs fn with the process-wide ambient timezone overridden.
// The prior time.Local and TZ environment variable are restored on every exit
// path, including a panic inside fn, so a scenario's override never leaks into
// the next scenario. An empty name runs fn unchanged.
//
// Both executions of one scenario happen inside a single WithTimeZone call:
// ambient state must not change between the reference and accelerated runs.
func WithTimeZone(name string, fn func() error) error {
	if name == "" {
		return fn()
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return errors.Wrapf(err, errors.CodeInvalidScenario, "unknown timezone %q", name)
	}

	prevLocal := time.Local
	prevTZ, hadTZ := os.LookupEnv("TZ")

	time.Local = loc
	if err := os.Setenv("TZ", name); err != nil {
		time.Local = prevLocal
		return errors.Wrap(err, errors.CodeInternal, "set TZ")
	}

	defer func() {
		time.Local = prevLocal
		if hadTZ {
			os.Setenv("TZ", prevTZ)
		} else {
			os.Unsetenv("TZ")
		}
	}()

	return fn()
}
