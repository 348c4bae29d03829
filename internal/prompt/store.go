// Package prompt holds the process-wide system instruction.
package prompt

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/apperr"
)

// Instruction is an immutable snapshot of the system instruction.
type Instruction struct {
	Text      string    `json:"prompt"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	IsDefault bool      `json:"is_default"`
}

// Store swaps instructions atomically. Readers never block writers.
type Store struct {
	def     string
	current atomic.Pointer[Instruction]
	now     func() time.Time
}

// NewStore starts at version 1 with def as the instruction.
func NewStore(def string) *Store {
	s := &Store{def: def, now: time.Now}
	s.current.Store(&Instruction{Text: def, Version: 1, UpdatedAt: s.now(), IsDefault: true})
	return s
}

// Current returns the active instruction.
func (s *Store) Current() Instruction {
	return *s.current.Load()
}

// Replace installs text unconditionally. Last write wins.
func (s *Store) Replace(text string) (Instruction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Instruction{}, fmt.Errorf("%w: prompt must not be empty", apperr.ErrValidation)
	}
	for {
		old := s.current.Load()
		next := s.next(old, text, false)
		if s.current.CompareAndSwap(old, next) {
			return *next, nil
		}
	}
}

// CompareAndSwap installs text only if the active version is still version.
func (s *Store) CompareAndSwap(version uint64, text string) (Instruction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Instruction{}, fmt.Errorf("%w: prompt must not be empty", apperr.ErrValidation)
	}
	old := s.current.Load()
	if old.Version != version {
		return *old, fmt.Errorf("%w: prompt version is %d, expected %d", apperr.ErrConflict, old.Version, version)
	}
	next := s.next(old, text, false)
	if !s.current.CompareAndSwap(old, next) {
		cur := s.current.Load()
		return *cur, fmt.Errorf("%w: prompt version is %d, expected %d", apperr.ErrConflict, cur.Version, version)
	}
	return *next, nil
}

// Reset restores the configured default.
func (s *Store) Reset() Instruction {
	for {
		old := s.current.Load()
		next := s.next(old, s.def, true)
		if s.current.CompareAndSwap(old, next) {
			return *next
		}
	}
}

func (s *Store) next(old *Instruction, text string, isDefault bool) *Instruction {
	return &Instruction{Text: text, Version: old.Version + 1, UpdatedAt: s.now(), IsDefault: isDefault}
}
