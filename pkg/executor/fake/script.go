package fake

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/cuemby/gluster-reconciler/pkg/executor"
)

// ExpectedCmd is one scripted gluster invocation
type ExpectedCmd struct {
	Args   []string
	Output string
	Err    error
}

// Script is a Runner that asserts an exact command sequence
type Script struct {
	t    *testing.T
	mu   sync.Mutex
	cmds []*ExpectedCmd
	i    int
}

var _ executor.Runner = &Script{}

// NewScript returns a Script that fails the test on unexpected commands and,
// at cleanup, on commands that were never issued
func NewScript(t *testing.T, cmds ...*ExpectedCmd) *Script {
	t.Helper()

	s := &Script{t: t, cmds: cmds}
	t.Cleanup(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.i != len(s.cmds) {
			t.Errorf("expected %d command executions, got %d", len(s.cmds), s.i)
		}
	})
	return s
}

// Expect appends more scripted commands
func (s *Script) Expect(cmds ...*ExpectedCmd) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmds = append(s.cmds, cmds...)
}

func (s *Script) Run(_ context.Context, args ...string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cmds) <= s.i {
		s.t.Fatalf("expected %d command executions, got more: gluster %s", len(s.cmds), strings.Join(args, " "))
	}
	cmd := s.cmds[s.i]
	if !slices.Equal(cmd.Args, args) {
		s.t.Fatalf("command %d: want gluster %s, got gluster %s",
			s.i, strings.Join(cmd.Args, " "), strings.Join(args, " "))
	}
	s.i++
	return cmd.Output, cmd.Err
}

// Calls returns the number of commands consumed so far
func (s *Script) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.i
}
