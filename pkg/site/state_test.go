package site

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeState(t *testing.T, content string) *StateFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return NewStateFile(path)
}

func TestStateFile_Counts(t *testing.T) {
	f := writeState(t, `
users: 5
active_plugins:
  - akismet/akismet.php
  - wp-mu-prometheus/plugin.php
posts:
  publish: 12
  draft: 3
attachments: 7
`)
	ctx := context.Background()

	users, err := f.CountUsers(ctx)
	if err != nil || users != 5 {
		t.Errorf("CountUsers() = %d, %v, want 5", users, err)
	}
	plugins, err := f.ActivePluginList(ctx)
	if err != nil || len(plugins) != 2 {
		t.Errorf("ActivePluginList() = %v, %v, want 2 plugins", plugins, err)
	}
	posts, err := f.CountPosts(ctx)
	if err != nil || posts["publish"] != 12 || posts["draft"] != 3 {
		t.Errorf("CountPosts() = %v, %v", posts, err)
	}
	attachments, err := f.CountAttachments(ctx)
	if err != nil || attachments != 7 {
		t.Errorf("CountAttachments() = %d, %v, want 7", attachments, err)
	}
}

func TestStateFile_ReadsEveryCall(t *testing.T) {
	f := writeState(t, "users: 1\n")
	ctx := context.Background()

	if n, _ := f.CountUsers(ctx); n != 1 {
		t.Fatalf("CountUsers() = %d, want 1", n)
	}
	if err := f.Write(&State{Users: 4}); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if n, _ := f.CountUsers(ctx); n != 4 {
		t.Errorf("CountUsers() = %d after update, want 4", n)
	}
}

func TestStateFile_EmptyPosts(t *testing.T) {
	f := writeState(t, "users: 1\n")

	posts, err := f.CountPosts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if posts == nil || len(posts) != 0 {
		t.Errorf("CountPosts() = %v, want empty map", posts)
	}
}

func TestStateFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		file *StateFile
	}{
		{name: "missing", file: NewStateFile(filepath.Join(t.TempDir(), "missing.yaml"))},
		{name: "invalid", file: writeState(t, "users: [not a number\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.file.CountUsers(context.Background()); err == nil {
				t.Error("CountUsers() should fail")
			}
		})
	}
}

func TestStateFile_CancelledContext(t *testing.T) {
	f := writeState(t, "users: 1\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Read(ctx); err == nil {
		t.Error("Read() should fail on a cancelled context")
	}
}
