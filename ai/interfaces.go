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


package ai

import "context"

// Normalizer rewrites raw item text into a structured, search-friendly form.
// Implementations must be safe for concurrent use.
type Normalizer interface {
	// Normalize returns the normalized form of text. SourceKind names the
	// kind of source the text came from ("telegram", "instagram", ...) and
	// is passed to the model as context.
	Normalize(ctx context.Context, text, sourceKind string) (string, error)
}
