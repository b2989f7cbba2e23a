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


package normalize

import "errors"

var (
	// ErrItemRepositoryRequired is returned when no item repository is supplied.
	ErrItemRepositoryRequired = errors.New("item repository is required")

	// ErrNormalizerRequired is returned when no normalizer is supplied.
	ErrNormalizerRequired = errors.New("normalizer is required")

	// ErrInvalidMaxAttempts is returned for a non-positive attempt count.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrInvalidOption is returned when an option value is out of range.
	ErrInvalidOption = errors.New("invalid option")
)
