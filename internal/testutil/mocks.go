// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"context"
	"sync"

	"github.com/ptrunner/pt/internal/domain"
)

// MockRunner is a test double for domain.Runner. It records every
// invocation and answers via RunFunc when set, Default otherwise.
type MockRunner struct {
	mu          sync.Mutex
	Invocations []domain.Invocation
	RunFunc     func(inv domain.Invocation) domain.ExecResult
	Default     domain.ExecResult
}

// Run records the invocation and returns the scripted result.
func (m *MockRunner) Run(_ context.Context, inv domain.Invocation) domain.ExecResult {
	m.mu.Lock()
	m.Invocations = append(m.Invocations, inv)
	m.mu.Unlock()
	if m.RunFunc != nil {
		return m.RunFunc(inv)
	}
	return m.Default
}

// Recorded returns a copy of the recorded invocations.
func (m *MockRunner) Recorded() []domain.Invocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Invocation{}, m.Invocations...)
}

// MockMetadataReader is a test double for domain.MetadataReader, keyed by
// exact script path with a fallback to the zero value.
type MockMetadataReader struct {
	Meta map[string]domain.ScriptMetadata
	Err  error
}

// Read returns the scripted metadata for a path.
func (m *MockMetadataReader) Read(path string) (domain.ScriptMetadata, error) {
	if m.Err != nil {
		return domain.ScriptMetadata{}, m.Err
	}
	return m.Meta[path], nil
}

// MockGitInfo is a test double for domain.GitInfo.
type MockGitInfo struct {
	BranchName string
	CommitSHA  string
}

// Branch returns the configured branch.
func (m *MockGitInfo) Branch() string { return m.BranchName }

// Commit returns the configured commit.
func (m *MockGitInfo) Commit() string { return m.CommitSHA }

// NewResolved builds a minimal Resolved for use-case tests.
func NewResolved(tasks map[string]*domain.Task) *domain.Resolved {
	return &domain.Resolved{
		Config:     &domain.Config{Tasks: map[string]*domain.TaskConfig{}},
		Tasks:      tasks,
		BaseEnv:    map[string]string{},
		Groups:     map[string][]string{},
		Root:       "/tmp/project",
		ConfigFile: "/tmp/project/pt.toml",
	}
}
