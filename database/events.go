// Copyright 2025 Magnus Pierre
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

package database

import "sync"

// Events is a small publish/subscribe bus for the three topics the
// connection list raises. Handlers run synchronously, in subscription
// order, on the goroutine that triggered the event.
type Events struct {
	mu           sync.RWMutex
	focusChanged []func(Names)
	errors       []func([]string)
	logLine      []func(string)
}

// OnFocusChanged subscribes to changes of the focused connection,
// database or table.
func (e *Events) OnFocusChanged(fn func(Names)) {
	e.mu.Lock()
	e.focusChanged = append(e.focusChanged, fn)
	e.mu.Unlock()
}

// OnErrors subscribes to connection and query failures.
func (e *Events) OnErrors(fn func([]string)) {
	e.mu.Lock()
	e.errors = append(e.errors, fn)
	e.mu.Unlock()
}

// OnLogLine subscribes to every statement sent to a server.
func (e *Events) OnLogLine(fn func(string)) {
	e.mu.Lock()
	e.logLine = append(e.logLine, fn)
	e.mu.Unlock()
}

func (e *Events) emitFocusChanged(names Names) {
	e.mu.RLock()
	handlers := append([]func(Names){}, e.focusChanged...)
	e.mu.RUnlock()
	for _, fn := range handlers {
		fn(names)
	}
}

func (e *Events) emitErrors(msgs []string) {
	e.mu.RLock()
	handlers := append([]func([]string){}, e.errors...)
	e.mu.RUnlock()
	for _, fn := range handlers {
		fn(msgs)
	}
}

func (e *Events) emitLogLine(line string) {
	e.mu.RLock()
	handlers := append([]func(string){}, e.logLine...)
	e.mu.RUnlock()
	for _, fn := range handlers {
		fn(line)
	}
}
