package common

import (
	"fmt"
	"runtime"

	"github.com/ternarybob/arbor"
)

// SafeGo runs fn in a goroutine. A panic is logged with its stack and reported
// on the returned channel as an error; a normal return sends fn's result.
func SafeGo(logger arbor.ILogger, name string, fn func() error) <-chan error {
	done := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)

				logger.Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(buf[:n])).
					Msg("Recovered from panic in goroutine")

				done <- fmt.Errorf("%s panicked: %v", name, r)
			}
		}()

		done <- fn()
	}()

	return done
}
