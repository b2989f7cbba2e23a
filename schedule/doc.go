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


// Package schedule runs recurring pipeline jobs on fixed intervals.
//
// Jobs are registered with an interval and driven by robfig/cron using
// "@every" schedules. A job never overlaps with itself: a tick that arrives
// while the previous run is still going is skipped. Stop waits for running
// jobs and cancels them only when the caller's context expires.
package schedule
