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



package expand

import (
	"fmt"
	"regexp"
)

// Pattern recognizes links to one secondary source. The last capture group of
// Regexp is the post's shortcode.
type Pattern struct {
	Name   string
	Regexp *regexp.Regexp
}

// InstagramPattern matches Instagram post and reel links. The host must be
// instagram.com or one of its subdomains.
var InstagramPattern = Pattern{
	Name:   "instagram",
	Regexp: regexp.MustCompile(`(?i)^(?:https?://)?(?:[a-z0-9-]+\.)*instagram\.com(?::\d+)?/(?:p|reel)/([A-Za-z0-9_-]+)`),
}

// DefaultPatterns are the patterns used when none are configured.
func DefaultPatterns() []Pattern {
	return []Pattern{InstagramPattern}
}

// ItemID returns the derived item id for url, or false when url does not match.
func (p Pattern) ItemID(url string) (string, bool) {
	m := p.Regexp.FindStringSubmatch(url)
	if len(m) < 2 || m[len(m)-1] == "" {
		return "", false
	}
	return fmt.Sprintf("%s_%s", p.Name, m[len(m)-1]), true
}
