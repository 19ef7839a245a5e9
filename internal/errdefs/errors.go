// Package errdefs defines the failure kinds a conversion can end with.
// Each kind is a private type with a constructor and an Is predicate, so
// callers can wrap them with %w and still classify the result.
package errdefs

import (
	"errors"
	"strconv"
)

// usageError signals bad or missing command-line arguments.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func ErrUsage(msg string) error { return usageError{msg: msg} }

// IsUsage reports whether err is a usage error.
func IsUsage(err error) bool {
	var e usageError
	return errors.As(err, &e)
}

// inputNotFoundError signals a local input path that does not exist.
type inputNotFoundError struct{ path string }

func (e inputNotFoundError) Error() string { return "input file not found: " + e.path }

func ErrInputNotFound(path string) error { return inputNotFoundError{path: path} }

func IsInputNotFound(err error) bool {
	var e inputNotFoundError
	return errors.As(err, &e)
}

// downloadFailedError signals a remote input that could not be stored locally.
type downloadFailedError struct {
	url string
	err error
}

func (e downloadFailedError) Error() string {
	if e.err != nil {
		return "download failed: " + e.url + ": " + e.err.Error()
	}
	return "download failed: " + e.url
}

func (e downloadFailedError) Unwrap() error { return e.err }

func ErrDownloadFailed(url string, cause error) error { return downloadFailedError{url: url, err: cause} }

func IsDownloadFailed(err error) bool {
	var e downloadFailedError
	return errors.As(err, &e)
}

// outputDirMissingError signals that the configured output directory is absent.
type outputDirMissingError struct{ dir string }

func (e outputDirMissingError) Error() string { return "output directory does not exist: " + e.dir }

func ErrOutputDirMissing(dir string) error { return outputDirMissingError{dir: dir} }

func IsOutputDirMissing(err error) bool {
	var e outputDirMissingError
	return errors.As(err, &e)
}

// binaryMissingError signals a runtime stub or alignment tool that is absent or not executable.
type binaryMissingError struct {
	role string
	path string
}

func (e binaryMissingError) Error() string {
	return e.role + " not found or not executable: " + e.path
}

func ErrBinaryMissing(role, path string) error { return binaryMissingError{role: role, path: path} }

func IsBinaryMissing(err error) bool {
	var e binaryMissingError
	return errors.As(err, &e)
}

// buildFailedError signals any failure while assembling the artifact.
type buildFailedError struct {
	msg string
	err error
}

func (e buildFailedError) Error() string {
	if e.err != nil {
		return "build failed: " + e.msg + ": " + e.err.Error()
	}
	return "build failed: " + e.msg
}

func (e buildFailedError) Unwrap() error { return e.err }

func ErrBuildFailed(msg string, cause error) error { return buildFailedError{msg: msg, err: cause} }

func IsBuildFailed(err error) bool {
	var e buildFailedError
	return errors.As(err, &e)
}

// testFailedError is reported after a smoke test but never aborts a conversion.
type testFailedError struct {
	exitCode int
	err      error
}

func (e testFailedError) Error() string {
	if e.err != nil {
		return "artifact test failed: " + e.err.Error()
	}
	return "artifact test failed with exit code " + strconv.Itoa(e.exitCode)
}

func (e testFailedError) Unwrap() error { return e.err }

func ErrTestFailed(exitCode int, cause error) error {
	return testFailedError{exitCode: exitCode, err: cause}
}

func IsTestFailed(err error) bool {
	var e testFailedError
	return errors.As(err, &e)
}

// ExitCode maps an error returned by a conversion to a process exit code.
// Every fatal kind, and anything unclassified, exits 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
