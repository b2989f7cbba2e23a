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



// Package page provides expand.SecondaryFetcher implementations that read a
// post page and pull its content from JSON-LD and OpenGraph metadata.
package page

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/driftnet/expand"
)

// ErrLoginRequired is returned when the site redirects to a login wall.
var ErrLoginRequired = errors.New("page requires login")

// ldTypes are the JSON-LD object types that describe a post.
var ldTypes = map[string]bool{
	"SocialMediaPosting": true,
	"ImageObject":        true,
	"VideoObject":        true,
}

// ParsePost extracts post content from a rendered or raw HTML page.
func ParsePost(body []byte, pageURL string) (*expand.Post, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	post := &expand.Post{URL: pageURL}
	og := openGraph(doc)

	if ld := jsonLD(doc); ld != nil {
		post.PrimaryText = firstString(ld, "caption", "description", "articleBody")
		post.Published = parseTime(firstString(ld, "uploadDate", "datePublished", "dateCreated"))
		switch author := ld["author"].(type) {
		case map[string]any:
			post.AuthorHandle = firstString(author, "alternateName", "identifier", "name")
		case string:
			post.AuthorHandle = author
		}
	}

	title := og["og:title"]
	if post.PrimaryText == "" {
		post.PrimaryText = quotedCaption(title)
	}
	if post.AuthorHandle == "" {
		post.AuthorHandle = authorFromTitle(title)
	}
	post.AuthorHandle = strings.TrimPrefix(strings.TrimSpace(post.AuthorHandle), "@")
	post.RichDescription = og["og:description"]
	if post.Published.IsZero() {
		post.Published = parseTime(og["article:published_time"])
	}

	return post, nil
}

// openGraph collects og:* and article:* meta properties.
func openGraph(doc *goquery.Document) map[string]string {
	kv := make(map[string]string)
	doc.Find("meta[property]").Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		content, _ := s.Attr("content")
		content = strings.TrimSpace(content)
		if prop == "" || content == "" {
			return
		}
		if strings.HasPrefix(prop, "og:") || strings.HasPrefix(prop, "article:") {
			if _, seen := kv[prop]; !seen {
				kv[prop] = content
			}
		}
	})
	return kv
}

// jsonLD returns the first JSON-LD object describing a post, falling back to
// the first object found.
func jsonLD(doc *goquery.Document) map[string]any {
	var fallback map[string]any
	var found map[string]any

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		var candidates []map[string]any
		switch v := data.(type) {
		case map[string]any:
			candidates = append(candidates, v)
			if graph, ok := v["@graph"].([]any); ok {
				candidates = append(candidates, objects(graph)...)
			}
		case []any:
			candidates = objects(v)
		}
		for _, c := range candidates {
			if t, _ := c["@type"].(string); ldTypes[t] {
				found = c
				return false
			}
			if fallback == nil {
				fallback = c
			}
		}
		return true
	})

	if found != nil {
		return found
	}
	return fallback
}

func objects(list []any) []map[string]any {
	var out []map[string]any
	for _, v := range list {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// authorFromTitle reads the handle from titles like `user on Instagram: "..."`.
func authorFromTitle(title string) string {
	if idx := strings.Index(title, " on Instagram"); idx > 0 {
		return strings.TrimSpace(title[:idx])
	}
	if idx := strings.Index(title, ":"); idx > 0 {
		return strings.TrimSpace(title[:idx])
	}
	return ""
}

// quotedCaption reads the caption from titles like `user on Instagram: "caption"`.
func quotedCaption(title string) string {
	idx := strings.Index(title, ": \"")
	if idx < 0 {
		return ""
	}
	caption := title[idx+3:]
	caption = strings.TrimSuffix(strings.TrimSpace(caption), "\"")
	return strings.TrimSpace(caption)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
