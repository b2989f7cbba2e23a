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


// Package normalize rewrites stored items with a language model.
//
// A Processor takes a snapshot of unprocessed items (oldest first), asks an
// ai.Normalizer for each item's normalized text and writes the result back
// with storage.ItemRepository.MarkNormalized. Calls are paced so a single
// pass never exceeds one request per Delay. An item whose normalization
// fails stays unprocessed and is picked up again by the next pass.
package normalize
