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


// Package ai provides abstractions for the language model services used by
// driftnet.
//
// The only service the pipeline needs is a Normalizer, which turns raw
// scraped text into a concise structured summary stored next to the item.
//
// # Implementation Packages
//
//   - ai/openai: langchaingo client for OpenAI-compatible chat APIs
//   - ai/mock: test double with injectable behavior
//
// Public constructors in implementation packages return the ai.Normalizer
// interface. The mock constructor returns its concrete type so tests can
// inspect call counts and inject behavior.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithModel("gpt-4o-mini"), ai.WithToken(token))
//	normalizer, err := openai.NewNormalizer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	text, err := normalizer.Normalize(ctx, item.Text, "telegram")
package ai
