// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package scratch manages per-invocation working directories. Every pipeline
// run gets its own uuid named session under a shared root; the session is
// removed on every exit path and the janitor sweeps sessions left behind by
// a crashed process.
package scratch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
)

const (
	framePrefix   = "frame-"
	pendingPrefix = "pending-"
	frameExt      = ".jpg"
	// five digits keep the sequence contiguous for up to 100000 frames.
	frameDigits = 5
)

// Manager owns the scratch root. It remembers the sessions it handed out
// until they end so a sweep never removes a session that is still in use,
// however long its encode runs.
type Manager struct {
	root   string
	log    *slog.Logger
	mu     sync.Mutex
	active map[string]struct{}
}

func NewManager(root string) (*Manager, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, writeError("scratch-init", err)
	}
	return &Manager{
		root:   abs,
		log:    slog.Default().With("component", "scratch"),
		active: make(map[string]struct{}),
	}, nil
}

func (m *Manager) Root() string { return m.root }

// Begin creates a new, empty session directory.
func (m *Manager) Begin() (*Session, error) {
	name := uuid.NewString()
	dir := filepath.Join(m.root, name)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, writeError("scratch-begin", err)
	}
	m.mu.Lock()
	m.active[name] = struct{}{}
	m.mu.Unlock()
	return &Session{dir: dir, release: func() { m.release(name) }}, nil
}

func (m *Manager) release(name string) {
	m.mu.Lock()
	delete(m.active, name)
	m.mu.Unlock()
}

func (m *Manager) isActive(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[name]
	return ok
}

// Active reports how many sessions begun by this manager have not ended.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Sweep removes session directories last modified before now-olderThan and
// returns how many were removed. Sessions of this manager that have not
// ended are skipped regardless of age.
func (m *Manager) Sweep(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	var errs []error
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := uuid.Parse(e.Name()); err != nil || m.isActive(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(m.root, e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		m.log.Info("swept stale scratch sessions", "removed", removed)
	}
	return removed, errors.Join(errs...)
}

// Session is one isolated scratch directory. Frames are promoted into the
// contiguous frame-NNNNN.jpg sequence strictly in order.
type Session struct {
	dir     string
	mu      sync.Mutex
	next    int
	once    sync.Once
	release func()
}

func (s *Session) Dir() string { return s.dir }

// Path returns name inside the session directory.
func (s *Session) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// FramePattern is the printf style pattern matching staged frames.
func (s *Session) FramePattern() string {
	return filepath.Join(s.dir, fmt.Sprintf("%s%%0%dd%s", framePrefix, frameDigits, frameExt))
}

func (s *Session) framePath(seq int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s%0*d%s", framePrefix, frameDigits, seq, frameExt))
}

// PendingPath is where a fetched frame waits, keyed by its slot index, until
// it is promoted into the sequence.
func (s *Session) PendingPath(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s%0*d%s", pendingPrefix, frameDigits, index, frameExt))
}

// WritePending stores normalized bytes for slot index.
func (s *Session) WritePending(index int, data []byte) (string, error) {
	p := s.PendingPath(index)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", writeError("stage", err)
	}
	return p, nil
}

// Promote moves a pending file to the next sequence position.
func (s *Session) Promote(pendingPath string) (model.StagedFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dst := s.framePath(s.next)
	if err := os.Rename(pendingPath, dst); err != nil {
		return model.StagedFrame{}, writeError("stage", err)
	}
	f := model.StagedFrame{SequenceIndex: s.next, LocalPath: dst}
	s.next++
	return f, nil
}

// StageFrame writes data directly as the next frame of the sequence.
func (s *Session) StageFrame(data []byte) (model.StagedFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dst := s.framePath(s.next)
	if err := os.WriteFile(dst, data, 0o600); err != nil {
		return model.StagedFrame{}, writeError("stage", err)
	}
	f := model.StagedFrame{SequenceIndex: s.next, LocalPath: dst}
	s.next++
	return f, nil
}

// Staged reports how many frames are in the sequence.
func (s *Session) Staged() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// End removes the session directory and everything in it. Only the first
// call does any work.
func (s *Session) End() error {
	var err error
	s.once.Do(func() {
		err = os.RemoveAll(s.dir)
		if s.release != nil {
			s.release()
		}
	})
	return err
}

// Contains reports whether p lies inside the session directory.
func (s *Session) Contains(p string) bool {
	rel, err := filepath.Rel(s.dir, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

func writeError(op string, err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return model.NewError(model.KindDiskFull, op, err)
	}
	return model.NewError(model.KindInternal, op, err)
}
