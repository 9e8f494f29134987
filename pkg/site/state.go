package site

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// State is the host's domain state as stored in the state file.
type State struct {
	Users         int            `yaml:"users"`
	ActivePlugins []string       `yaml:"active_plugins"`
	Posts         map[string]int `yaml:"posts"`
	Attachments   int            `yaml:"attachments"`
}

// StateFile reads State from a YAML file on every call, so counts are never
// older than the call.
type StateFile struct {
	path string
}

// NewStateFile creates a StateFile for path.
func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

// Path returns the file path.
func (f *StateFile) Path() string {
	return f.path
}

// Read parses the state file.
func (f *StateFile) Read(ctx context.Context) (*State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", f.path, err)
	}
	return &state, nil
}

// Write stores state in the file.
func (f *StateFile) Write(state *State) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// CountUsers returns the number of users.
func (f *StateFile) CountUsers(ctx context.Context) (int, error) {
	state, err := f.Read(ctx)
	if err != nil {
		return 0, err
	}
	return state.Users, nil
}

// ActivePluginList returns the active plugins.
func (f *StateFile) ActivePluginList(ctx context.Context) ([]string, error) {
	state, err := f.Read(ctx)
	if err != nil {
		return nil, err
	}
	return state.ActivePlugins, nil
}

// CountPosts returns the number of posts per status.
func (f *StateFile) CountPosts(ctx context.Context) (map[string]int, error) {
	state, err := f.Read(ctx)
	if err != nil {
		return nil, err
	}
	if state.Posts == nil {
		return map[string]int{}, nil
	}
	return state.Posts, nil
}

// CountAttachments returns the number of attachments.
func (f *StateFile) CountAttachments(ctx context.Context) (int, error) {
	state, err := f.Read(ctx)
	if err != nil {
		return 0, err
	}
	return state.Attachments, nil
}
