package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

type Kind string

const (
	InvalidConfig Kind = "invalid_config"
	NoImages      Kind = "no_images"
	NotFound      Kind = "not_found"
	CommandFailed Kind = "command_failed"
	IOFailure     Kind = "io_failure"
	Cancelled     Kind = "cancelled"
	Internal      Kind = "internal"
)

type AppError struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *AppError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func Wrap(kind Kind, op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Kind: kind,
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// KindOf reports the kind of the outermost AppError in err's chain, or Internal.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// StderrCarrier is implemented by errors that captured a command's standard error.
type StderrCarrier interface {
	StderrText() string
}

func UserMessage(err error) string {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return err.Error()
	}
	switch appErr.Kind {
	case InvalidConfig:
		return fmt.Sprintf("Invalid configuration: %v", appErr.Err)
	case NoImages:
		if appErr.Path != "" {
			return fmt.Sprintf("No image files found in %s", appErr.Path)
		}
		return "No image files found in the current directory"
	case NotFound:
		return fmt.Sprintf("Path not found: %s", appErr.Path)
	case CommandFailed:
		var carrier StderrCarrier
		if stderrors.As(appErr.Err, &carrier) {
			if text := strings.TrimSpace(carrier.StderrText()); text != "" {
				return fmt.Sprintf("Error: %s failed: %s", appErr.Op, text)
			}
		}
		return fmt.Sprintf("Error: %s failed: %v", appErr.Op, appErr.Err)
	case IOFailure:
		return fmt.Sprintf("I/O error: %s: %v", appErr.Path, appErr.Err)
	case Cancelled:
		return "Operation cancelled"
	default:
		return fmt.Sprintf("Unexpected error: %v", appErr.Err)
	}
}
