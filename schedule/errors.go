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


package schedule

import "errors"

var (
	// ErrInvalidInterval is returned for a non-positive job interval.
	ErrInvalidInterval = errors.New("interval must be positive")

	// ErrDuplicateJob is returned when a job name is registered twice.
	ErrDuplicateJob = errors.New("job already registered")

	// ErrJobRequired is returned when a nil job is registered.
	ErrJobRequired = errors.New("job is required")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("scheduler already started")
)
