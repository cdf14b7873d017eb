/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package session holds the per-connection state of the host that the
// planning bridge reads: the name-resolution search path and the command tag
// of the active portal.
package session

import (
	"slices"
	"sync"
)

// CommandTag identifies the statement the active portal is running.
type CommandTag string

// Command tags the bridge cares about.
const (
	TagNone    CommandTag = ""
	TagSelect  CommandTag = "SELECT"
	TagExplain CommandTag = "EXPLAIN"
)

type savedSearchPath struct {
	level int
	path  []string
}

// Session is the host session state. Temporary setting overrides follow a
// nest-level discipline: NewNestLevel opens a level, settings changed while
// it is open are saved once, and AtEndOfNestLevel restores them.
type Session struct {
	mu         sync.Mutex
	searchPath []string
	nestLevel  int
	saved      []savedSearchPath
	commandTag CommandTag
}

// New returns a session with the given search path.
func New(searchPath ...string) *Session {
	return &Session{searchPath: slices.Clone(searchPath)}
}

// SearchPath returns a copy of the current search path.
func (s *Session) SearchPath() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.searchPath)
}

// SetSearchPath changes the search path. Inside a nest level the previous
// value is saved the first time the level changes it.
func (s *Session) SetSearchPath(path []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nestLevel > 0 && (len(s.saved) == 0 || s.saved[len(s.saved)-1].level < s.nestLevel) {
		s.saved = append(s.saved, savedSearchPath{level: s.nestLevel, path: s.searchPath})
	}
	s.searchPath = slices.Clone(path)
}

// NewNestLevel opens a nest level and returns it.
func (s *Session) NewNestLevel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nestLevel++
	return s.nestLevel
}

// AtEndOfNestLevel restores every setting saved at level or deeper and
// closes those levels.
func (s *Session) AtEndOfNestLevel(level int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.saved) > 0 && s.saved[len(s.saved)-1].level >= level {
		top := s.saved[len(s.saved)-1]
		s.saved = s.saved[:len(s.saved)-1]
		s.searchPath = top.path
	}
	if level-1 < s.nestLevel {
		s.nestLevel = max(level-1, 0)
	}
}

// NestLevel returns the current nest level, 0 outside any override.
func (s *Session) NestLevel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nestLevel
}

// OverrideSearchPath sets the search path inside a fresh nest level. The
// returned function restores the previous path; calling it more than once
// is harmless. Callers defer it.
func (s *Session) OverrideSearchPath(path []string) (restore func()) {
	level := s.NewNestLevel()
	s.SetSearchPath(path)
	var once sync.Once
	return func() {
		once.Do(func() { s.AtEndOfNestLevel(level) })
	}
}

// CommandTag returns the command tag of the active portal.
func (s *Session) CommandTag() CommandTag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commandTag
}

// SetCommandTag records the command tag of the active portal.
func (s *Session) SetCommandTag(tag CommandTag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commandTag = tag
}
