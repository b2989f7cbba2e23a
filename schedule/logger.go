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


package schedule

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

var _ cron.Logger = (*cronLogger)(nil)

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(fmt.Sprintf("cron: %s", msg), keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprintf("cron: %s", msg), append(keysAndValues, "err", err)...)
}
