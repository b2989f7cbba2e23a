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



package telegram

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

type message struct {
	id        int64
	text      string
	timestamp time.Time
}

// parsePreview extracts messages from a channel preview page. isChannel is
// false when the page is not a channel preview at all.
func parsePreview(body []byte) (messages []message, isChannel bool, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("parse html: %w", err)
	}

	isChannel = doc.Find(".tgme_channel_info, .tgme_widget_message").Length() > 0

	doc.Find(".tgme_widget_message[data-post]").Each(func(_ int, s *goquery.Selection) {
		post, _ := s.Attr("data-post")
		id, ok := postID(post)
		if !ok {
			return
		}
		m := message{id: id, text: messageText(s.Find(".tgme_widget_message_text").First())}
		if dt, exists := s.Find(".tgme_widget_message_date time[datetime]").First().Attr("datetime"); exists {
			if ts, err := time.Parse(time.RFC3339, dt); err == nil {
				m.timestamp = ts.UTC()
			}
		}
		messages = append(messages, m)
	})

	return messages, isChannel, nil
}

// postID parses the numeric part of a "channel/123" data-post attribute.
func postID(post string) (int64, bool) {
	idx := strings.LastIndexByte(post, '/')
	if idx < 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(post[idx+1:], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// messageText returns the message's visible text with line breaks kept.
// Hyperlink targets that are not already visible are appended on their own lines.
func messageText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}

	var hrefs []string
	s.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
			hrefs = append(hrefs, href)
		}
	})

	s.Find("br").ReplaceWithHtml("\n")
	text := strings.TrimSpace(s.Text())

	for _, href := range hrefs {
		if !strings.Contains(text, href) {
			text += "\n" + href
		}
	}
	return text
}
