// Package errors reduces error values to short, bounded labels for metrics and logs.
package errors

import (
	"context"
	goerrors "errors"
	"net"
	"reflect"
	"strings"

	apperrors "github.com/pigbank/console-api/internal/errors"
)

// Classify labels err for the error_class metric dimension. Cancellation and timeouts get
// fixed names, coded application errors use their code, and everything else is named
// after the innermost error's Go type ("pkg_type").
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if label := wellKnown(err); label != "" {
		return label
	}
	if code := apperrors.GetCode(err); code != "" {
		return "app_" + string(code)
	}
	return typeLabel(innermost(err))
}

func wellKnown(err error) string {
	if goerrors.Is(err, context.DeadlineExceeded) {
		return "deadline_exceeded"
	}
	if goerrors.Is(err, context.Canceled) {
		return "canceled"
	}
	var netErr net.Error
	if goerrors.As(err, &netErr) && netErr.Timeout() {
		return "net_timeout"
	}
	return ""
}

// innermost follows single-error Unwrap chains. Joined errors stop the walk.
func innermost(err error) error {
	for {
		next := goerrors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func typeLabel(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "unknown"
	}
	pkg := t.PkgPath()
	if i := strings.LastIndexByte(pkg, '/'); i >= 0 {
		pkg = pkg[i+1:]
	}
	return strings.ToLower(pkg + "_" + t.Name())
}
