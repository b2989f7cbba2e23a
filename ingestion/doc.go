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



// Package ingestion runs a scrape across many sources and persists the results.
//
// The Orchestrator admits at most Concurrency sources at once, isolates
// per-source failures, resolves indirection links once per run across the
// whole batch, upserts every primary item, and then expands links that point
// at supported secondary sources, one at a time.
//
// Only two conditions fail a run: an empty source list (ErrNoSources) and a
// store failure (ErrStoreFailure). Everything else is reported per unit in
// the RunReport.
//
// Usage:
//
//	orch, err := ingestion.NewOrchestrator(scraper, batch, items,
//	    ingestion.WithExpander(expander),
//	    ingestion.WithSourceRegistry(sources))
//	report, err := orch.Run(ctx, []string{"acme", "beta"}, 100, 5)
package ingestion
