package command

import (
	"context"
)

// MockExecutor is a mock implementation of Executor for testing.
// OnRun, when set, runs instead of returning the canned output, so tests can
// produce the files a real program would write.
type MockExecutor struct {
	MockOutput []byte
	MockError  error
	OnRun      func(name string, args []string) error

	Calls [][]string
}

func (m *MockExecutor) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	m.Calls = append(m.Calls, append([]string{name}, args...))
	if m.OnRun != nil {
		if err := m.OnRun(name, args); err != nil {
			return nil, err
		}
	}
	return m.MockOutput, m.MockError
}
