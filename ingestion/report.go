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

import (
	"time"

	"github.com/poiesic/driftnet/core"
	"github.com/poiesic/driftnet/links"
)

// Outcome is the result of handling one unit (a source or an item) in a run.
type Outcome string

const (
	OutcomeDuplicate          Outcome = "duplicate"
	OutcomeSourceFailed       Outcome = "source_failed"
	OutcomeShutdown           Outcome = "shutdown"
	OutcomeCancelled          Outcome = "cancelled"
	OutcomeSecondaryExisting  Outcome = "secondary_existing"
	OutcomeSecondaryDuplicate Outcome = "secondary_duplicate"
	OutcomeSecondaryInvalid   Outcome = "secondary_invalid"
	OutcomeSecondaryFailed    Outcome = "secondary_failed"
)

// SourceReport describes what happened to one source.
type SourceReport struct {
	Source  string
	Fetched int     // Items produced by the scraper
	Stored  int     // Of those, newly inserted
	Err     error   // Non-nil when the source failed
	Reason  Outcome // Empty on success
}

// OK reports whether the source was scraped successfully.
func (r *SourceReport) OK() bool {
	return r.Err == nil && r.Reason == ""
}

// RunReport summarizes one orchestrator run.
type RunReport struct {
	RunID    string
	Started  time.Time
	Finished time.Time

	Sources []SourceReport
	// Items holds the primary items followed by the secondary items stored in this run.
	Items []*core.Item

	Primary   int
	Secondary int
	Created   int
	Links     links.BatchStats

	// Skips tallies every non-success outcome.
	Skips map[Outcome]int
}

func newRunReport(runID string, started time.Time) *RunReport {
	return &RunReport{
		RunID:   runID,
		Started: started,
		Skips:   make(map[Outcome]int),
	}
}

func (r *RunReport) skip(o Outcome) {
	r.Skips[o]++
}

// FailedSources returns the reports of sources that did not complete.
func (r *RunReport) FailedSources() []SourceReport {
	var failed []SourceReport
	for _, s := range r.Sources {
		if !s.OK() {
			failed = append(failed, s)
		}
	}
	return failed
}
