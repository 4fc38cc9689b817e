package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimusicboards/reviewboard/internal/errors"
)

func TestExpandString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		env     map[string]string
		want    string
		wantErr bool
	}{
		{name: "empty", input: "", want: ""},
		{name: "literal", input: "plain-token", want: "plain-token"},
		{
			name:  "variable",
			input: "${RB_TEST_TOKEN}",
			env:   map[string]string{"RB_TEST_TOKEN": "secret123"},
			want:  "secret123",
		},
		{
			name:  "prefix and suffix",
			input: "Bearer ${RB_TEST_TOKEN}",
			env:   map[string]string{"RB_TEST_TOKEN": "abc"},
			want:  "Bearer abc",
		},
		{
			name:  "two variables",
			input: "${RB_TEST_USER}:${RB_TEST_PASS}",
			env:   map[string]string{"RB_TEST_USER": "host", "RB_TEST_PASS": "pw"},
			want:  "host:pw",
		},
		{
			name:  "default unused",
			input: "${RB_TEST_TOKEN:-fallback}",
			env:   map[string]string{"RB_TEST_TOKEN": "actual"},
			want:  "actual",
		},
		{name: "default used", input: "${RB_TEST_UNSET_A:-fallback}", want: "fallback"},
		{name: "empty default", input: "${RB_TEST_UNSET_A:-}", want: ""},
		{name: "missing", input: "${RB_TEST_UNSET_B}", wantErr: true},
		{name: "missing inside text", input: "x-${RB_TEST_UNSET_B}-y", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got, err := ExpandString(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
				assert.Contains(t, err.Error(), "RB_TEST_UNSET_B")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func writeSecret(t *testing.T, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	return path
}

func TestReadFile(t *testing.T) {
	t.Run("trims trailing newlines only", func(t *testing.T) {
		got, err := ReadFile(writeSecret(t, " token \r\n", 0o600))
		require.NoError(t, err)
		assert.Equal(t, " token ", got)
	})

	t.Run("permissive mode still reads", func(t *testing.T) {
		got, err := ReadFile(writeSecret(t, "token", 0o644))
		require.NoError(t, err)
		assert.Equal(t, "token", got)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := ReadFile(writeSecret(t, "\n", 0o600))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})

	t.Run("too large", func(t *testing.T) {
		_, err := ReadFile(writeSecret(t, strings.Repeat("x", maxSecretFileSize+1), 0o600))
		require.Error(t, err)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	})

	t.Run("directory", func(t *testing.T) {
		_, err := ReadFile(t.TempDir())
		require.Error(t, err)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := ReadFile("")
		require.Error(t, err)
	})
}

func TestResolve(t *testing.T) {
	t.Setenv("RB_TEST_TOKEN", "from-env")

	got, err := Resolve("", "${RB_TEST_TOKEN}")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	got, err = Resolve(writeSecret(t, "from-file\n", 0o600), "${RB_TEST_TOKEN}")
	require.NoError(t, err)
	assert.Equal(t, "from-file", got, "file wins over value")

	got, err = Resolve("", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}
