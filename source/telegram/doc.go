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



// Package telegram implements fetch.SourceClient against the public web
// preview of Telegram channels (https://t.me/s/<channel>).
//
// Pages are returned newest first. The cursor is the lowest message id seen,
// passed back as the preview's "before" parameter.
package telegram
