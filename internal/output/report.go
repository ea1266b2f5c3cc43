package output

import (
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"
)

// PanicError wraps a value recovered from a panic together with the stack of
// the panicking goroutine.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprint(e.Value)
}

// Kind implements the reporting contract used by Describe.
func (e *PanicError) Kind() string {
	return "panic"
}

// Guard runs fn and converts a panic into a *PanicError.
func Guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	if fn == nil {
		return nil
	}
	return fn()
}

// generic error types carry no useful kind of their own.
var genericErrorTypes = map[string]bool{
	"*errors.errorString": true,
	"*errors.joinError":   true,
	"*fmt.wrapError":      true,
	"*fmt.wrapErrors":     true,
}

// ErrorKind names the first meaningful error type in err's chain. Types may
// override the name by implementing Kind() string.
func ErrorKind(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if k, ok := e.(interface{ Kind() string }); ok {
			return k.Kind()
		}
		name := reflect.TypeOf(e).String()
		if genericErrorTypes[name] {
			continue
		}
		name = strings.TrimPrefix(name, "*")
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			name = name[idx+1:]
		}
		return name
	}
	return "Error"
}

// Describe formats err as "<Kind>: <message>".
func Describe(err error) string {
	if err == nil {
		return ""
	}
	return ErrorKind(err) + ": " + err.Error()
}
