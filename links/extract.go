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



package links

import (
	"regexp"
	"strings"
)

// urlPattern matches URL-shaped tokens with or without a scheme.
var urlPattern = regexp.MustCompile(
	`(?:https?://)?(?:www\.)?[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?` +
		`(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*(?:/[^\s]*)?`)

const (
	trailingPunctuation = ".,;:!?)"
	minLinkLength       = 10
)

// Extract returns the links found in text, in order of first appearance and
// without duplicates. Scheme-less matches get an https:// prefix.
func Extract(text string) []string {
	if text == "" {
		return nil
	}

	var found []string
	for _, match := range urlPattern.FindAllString(text, -1) {
		link := strings.TrimRight(match, trailingPunctuation)
		if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
			link = "https://" + link
		}
		if strings.Contains(link, ".") && len(link) > minLinkLength {
			found = append(found, link)
		}
	}
	return Dedupe(found)
}

// Dedupe removes repeated links, keeping the first occurrence of each.
func Dedupe(links []string) []string {
	if len(links) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(links))
	out := make([]string, 0, len(links))
	for _, link := range links {
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		out = append(out, link)
	}
	return out
}
