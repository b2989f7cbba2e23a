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



package expand

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when a fetched post has no usable text.
	ErrValidation = errors.New("secondary post failed validation")

	// ErrNoPattern is returned when a URL matches no configured pattern.
	ErrNoPattern = errors.New("url matches no secondary pattern")

	// ErrFetcherRequired is returned when no SecondaryFetcher is provided.
	ErrFetcherRequired = errors.New("secondary fetcher required")

	// ErrParentRequired is returned when Expand is called without a parent item.
	ErrParentRequired = errors.New("parent item required")
)

// SecondaryFetchError reports that the secondary page could not be retrieved.
type SecondaryFetchError struct {
	URL string
	Err error
}

func (e *SecondaryFetchError) Error() string {
	return fmt.Sprintf("fetch secondary %s: %v", e.URL, e.Err)
}

func (e *SecondaryFetchError) Unwrap() error { return e.Err }
