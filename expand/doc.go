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



// Package expand derives secondary items from links in primary items.
//
// A Pattern recognizes links that point at a supported secondary source. For
// each match the Expander fetches the linked post through a SecondaryFetcher,
// builds a core.Item of kind secondary owned by the parent's source, and
// paces calls so at most one fetch starts per Delay.
package expand
