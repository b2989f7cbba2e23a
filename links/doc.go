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



// Package links extracts URLs from item text and resolves indirection links
// (URL shorteners) to their final destinations.
//
// Resolution never fails from the caller's point of view: a link that cannot
// be resolved is kept as-is. BatchResolver resolves each distinct link across
// a batch of items exactly once and fans the results back out.
package links
