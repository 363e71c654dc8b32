// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	"errors"
	"fmt"
)

// Wrap creates a new error that wraps the given error with additional context.
// If err is nil, returns nil.
//
// Usage:
//
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "doing something")
//	}
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf creates a new error that wraps the given error with formatted context.
// If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
// Convenience wrapper around errors.Is from the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target type,
// and if one is found, sets target to that error value and returns true.
// Convenience wrapper around errors.As from the standard library.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New creates a new error with the given message.
// Convenience wrapper around errors.New from the standard library.
func New(message string) error {
	return errors.New(message)
}

// Category returns a stable, machine-readable category for an error.
// The category is recorded in per-scenario report entries so that failed
// scenarios are never silently lost and failures can be aggregated.
func Category(err error) string {
	if err == nil {
		return ""
	}

	var (
		configErr      *ConfigError
		validationErr  *ValidationError
		remoteErr      *RemoteError
		timeoutErr     *TimeoutError
		exhaustedErr   *ResourceExhaustedError
		persistenceErr *PersistenceError
	)

	switch {
	case errors.As(err, &configErr):
		return "ConfigError"
	case errors.As(err, &validationErr):
		return "ValidationError"
	case errors.As(err, &timeoutErr):
		return "TimeoutError"
	case errors.As(err, &remoteErr):
		return "RemoteServiceError"
	case errors.As(err, &exhaustedErr):
		return "ResourceExhaustedError"
	case errors.As(err, &persistenceErr):
		return "PersistenceError"
	default:
		return "UnknownError"
	}
}

// IsFatal reports whether an error must terminate the process before any
// generation work begins. Only configuration and validation errors qualify;
// every other category is caught at the batch runner boundary and recorded
// as a per-scenario failure.
func IsFatal(err error) bool {
	var configErr *ConfigError
	var validationErr *ValidationError
	return errors.As(err, &configErr) || errors.As(err, &validationErr)
}
