package commandstructure

// MockCommand is a Command with injectable behaviour, used by tests of
// packages that build command chains
type MockCommand struct {
	CommandName string
	ExecuteFunc func([]byte) ([]byte, error)
	Calls       int
}

func (m *MockCommand) Name() string {
	return m.CommandName
}

func (m *MockCommand) Execute(imageData []byte) ([]byte, error) {
	m.Calls++
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(imageData)
	}
	return imageData, nil
}

// NewMockCommand creates a mock command with default behavior (pass-through)
func NewMockCommand(name string) *MockCommand {
	return &MockCommand{
		CommandName: name,
		ExecuteFunc: func(data []byte) ([]byte, error) {
			return data, nil
		},
	}
}

// NewMockCommandWithError creates a mock command that returns an error
func NewMockCommandWithError(name string, err error) *MockCommand {
	return &MockCommand{
		CommandName: name,
		ExecuteFunc: func(data []byte) ([]byte, error) {
			return nil, err
		},
	}
}

// NewPanickingMockCommand creates a mock command that panics on execution
func NewPanickingMockCommand(name string, v any) *MockCommand {
	return &MockCommand{
		CommandName: name,
		ExecuteFunc: func(data []byte) ([]byte, error) {
			panic(v)
		},
	}
}
