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



package ingestion

import "errors"

var (
	// ErrNoSources is returned when the run has no sources to scrape.
	ErrNoSources = errors.New("no sources to scrape")

	// ErrStoreFailure is returned when persisting an item fails. It aborts the run.
	ErrStoreFailure = errors.New("store failure")

	// ErrScraperRequired is returned when a scraper is not provided.
	ErrScraperRequired = errors.New("scraper required")

	// ErrBatchResolverRequired is returned when a batch link resolver is not provided.
	ErrBatchResolverRequired = errors.New("batch link resolver required")

	// ErrItemRepositoryRequired is returned when an item repository is not provided.
	ErrItemRepositoryRequired = errors.New("item repository required")
)
