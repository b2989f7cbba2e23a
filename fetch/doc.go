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



// Package fetch reads raw items from a primary source with retry, throttle
// handling and over-fetch.
//
// A SourceClient performs one network read of one page. The Fetcher wraps it:
//
//   - ThrottledError: wait RetryAfter and repeat the same request. Throttle
//     waits do not consume the attempt budget but are capped by
//     MaxThrottleWaits.
//   - TransientError (and any unclassified error): retried with exponential
//     backoff, up to MaxAttempts attempts in total.
//   - FatalError: returned immediately.
//
// Because some raw items carry no usable text, the Fetcher examines up to
// maxItems × OverFetch raw items to find maxItems usable ones.
package fetch
