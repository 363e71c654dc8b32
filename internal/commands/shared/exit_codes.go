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

package shared

import (
	"errors"
	"fmt"
	"os"

	pkgerrors "github.com/anomshot/anomshot/pkg/errors"
)

// Exit codes for the anomshot CLI
const (
	ExitSuccess         = 0
	ExitExecutionFailed = 1 // batch ran but at least one scenario failed, or an internal error
	ExitInvalidInput    = 2 // bad configuration or scenario file
	ExitProviderError   = 4 // provider could not be constructed or authenticated
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates an error for batch execution failures
func NewExecutionError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitExecutionFailed,
		Message: msg,
		Cause:   cause,
	}
}

// NewInvalidInputError creates an error for bad config or scenario files
func NewInvalidInputError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitInvalidInput,
		Message: msg,
		Cause:   cause,
	}
}

// NewProviderError creates an error for provider-related failures
func NewProviderError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitProviderError,
		Message: msg,
		Cause:   cause,
	}
}

// HandleExitError checks if an error is an ExitError and exits with the appropriate code
func HandleExitError(err error) {
	if err == nil {
		return
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		msg := exitErr.Error()
		if len(msg) > 0 {
			fmt.Fprintln(os.Stderr, "Error:", msg)
		}
		printSuggestion(err)
		os.Exit(exitErr.Code)
	}

	fmt.Fprintln(os.Stderr, "Error:", err.Error())
	printSuggestion(err)
	os.Exit(ExitExecutionFailed)
}

// printSuggestion surfaces a ValidationError's suggestion if one is in the
// chain.
func printSuggestion(err error) {
	var valErr *pkgerrors.ValidationError
	if errors.As(err, &valErr) && valErr.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", valErr.Suggestion)
	}
}
