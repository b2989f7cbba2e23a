// Copyright 2026 Poiesic Systems
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



package fetch

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrClientRequired is returned when no SourceClient is provided.
	ErrClientRequired = errors.New("source client required")

	// ErrRetriesExhausted is returned when every attempt failed transiently.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrThrottleLimit is returned when a source keeps throttling past MaxThrottleWaits.
	ErrThrottleLimit = errors.New("throttle wait limit reached")

	// ErrInvalidOption is returned when an option value is out of range.
	ErrInvalidOption = errors.New("invalid fetch option")
)

// ThrottledError reports that the source asked the caller to back off.
type ThrottledError struct {
	RetryAfter time.Duration // Zero when the source gave no hint
	Err        error
}

func (e *ThrottledError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("throttled (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("throttled (retry after %s)", e.RetryAfter)
}

func (e *ThrottledError) Unwrap() error { return e.Err }

// TransientError is a failure that may succeed if retried.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + errString(e.Err) }

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError is a failure that must not be retried, such as a nonexistent or private source.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "fatal: " + errString(e.Err) }

func (e *FatalError) Unwrap() error { return e.Err }

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
