// Package guard holds the preconditions every operation checks before it
// touches a file. A failed guard aborts the operation with nothing written
// and is logged at LevelFatal.
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// LevelFatal ranks above slog.LevelError. Handlers print it as FATAL.
const LevelFatal = slog.Level(12)

var (
	ErrInputMissing    = errors.New("input file does not exist")
	ErrSameInputOutput = errors.New("input and output are the same file")
	ErrOutputExists    = errors.New("output file exists and overwrite is disabled")
	ErrInputDirMissing = errors.New("input directory does not exist")
	ErrSameDir         = errors.New("input and output are the same directory")
	ErrInputNotDir     = errors.New("input is not a directory")
)

// Error is a failed precondition of an operation
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether err is a guard failure
func Is(err error) bool {
	var ge *Error
	return errors.As(err, &ge)
}

// Fail logs a guard failure at LevelFatal and returns it as *Error
func Fail(op, path string, err error) error {
	ge := &Error{Op: op, Path: path, Err: err}
	slog.Log(context.Background(), LevelFatal, "Guard failed, aborting",
		"op", op,
		"path", path,
		"reason", err.Error())
	return ge
}

// SamePath compares two paths after making them absolute and clean
func SamePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// Exists reports whether path can be stat'ed
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Files checks a single-file operation: input exists, output differs from
// input, and output is only replaced when overwrite is set.
func Files(op, input, output string, overwrite bool) error {
	if !Exists(input) {
		return Fail(op, input, ErrInputMissing)
	}
	if SamePath(input, output) {
		return Fail(op, output, ErrSameInputOutput)
	}
	return Output(op, output, overwrite)
}

// Output checks that output may be written
func Output(op, output string, overwrite bool) error {
	if overwrite {
		return nil
	}
	if Exists(output) {
		return Fail(op, output, ErrOutputExists)
	}
	return nil
}

// Dirs checks a folder operation: input is an existing directory and output
// is a different directory.
func Dirs(op, inputDir, outputDir string) error {
	info, err := os.Stat(inputDir)
	if err != nil {
		return Fail(op, inputDir, ErrInputDirMissing)
	}
	if !info.IsDir() {
		return Fail(op, inputDir, ErrInputNotDir)
	}
	if SamePath(inputDir, outputDir) {
		return Fail(op, outputDir, ErrSameDir)
	}
	return nil
}
