package panicutil

import (
	"github.com/sourcegraph/conc/panics"
)

// Guard calls f and returns its result.
// If f panics, it returns the fallback and the recovered panic as an error of type *panics.ErrRecovered.
func Guard[T any](fallback T, f func() T) (result T, err error) {
	var pc panics.Catcher
	pc.Try(func() {
		result = f()
	})
	if r := pc.Recovered(); r != nil {
		return fallback, r.AsError()
	}
	return result, nil
}

// Guard2 is like Guard for functions returning two values.
func Guard2[T, U any](fallbackT T, fallbackU U, f func() (T, U)) (t T, u U, err error) {
	var pc panics.Catcher
	pc.Try(func() {
		t, u = f()
	})
	if r := pc.Recovered(); r != nil {
		return fallbackT, fallbackU, r.AsError()
	}
	return t, u, nil
}

// Run calls f and returns a recovered panic as an error.
func Run(f func()) error {
	var pc panics.Catcher
	pc.Try(f)
	if r := pc.Recovered(); r != nil {
		return r.AsError()
	}
	return nil
}
