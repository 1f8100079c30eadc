package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pool.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func TestRun(t *testing.T) {
	tests := []struct {
		name   string
		config string
		want   []string
		err    error
	}{
		{
			name: "no runtime",
			config: `
pool {
  workers = 2
}
job {
  tasks = 10
}
`,
			want: []string{"workers:   2/2", "posted:    10", "succeeded: 10", "failed:    0"},
		},
		{
			name: "goja script",
			config: `
pool {
  workers = 3
  name    = "js"
}
runtime "goja" {
  bootstrap = "function work(i) { return i * i; }"
}
job {
  tasks  = 20
  script = "work(3)"
}
`,
			want: []string{"workers:   3/3", "succeeded: 20", "failed:    0"},
		},
		{
			name: "failing script loses the only worker",
			config: `
pool {
  workers = 1
}
runtime "goja" {}
job {
  tasks  = 5
  script = "throw new Error('boom')"
}
`,
			want: []string{"failed:    1", "workers lost: 1"},
			err:  errAllWorkersLost,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			err := run(&out, &errOut, []string{"-log-level", "error", "-config", writeConfig(t, tt.config)})
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			} else {
				require.NoError(t, err)
			}
			for _, w := range tt.want {
				require.Contains(t, out.String(), w)
			}
		})
	}
}

func TestRun_PositionalConfig(t *testing.T) {
	var out, errOut bytes.Buffer
	path := writeConfig(t, "job {\n  tasks = 3\n}\n")
	require.NoError(t, run(&out, &errOut, []string{"-producers", "1", path}))
	require.Contains(t, out.String(), "succeeded: 3")
}

func TestRun_Usage(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, run(&out, &errOut, nil))
	require.Contains(t, errOut.String(), "Usage:")
	require.Empty(t, out.String())
}

func TestRun_BadArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"-nope"}},
		{"zero producers", []string{"-producers", "0", "pool.hcl"}},
		{"bad log level", []string{"-log-level", "loud", "pool.hcl"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			err := run(&out, &errOut, tt.args)
			var exitErr *exitError
			require.ErrorAs(t, err, &exitErr)
			require.Equal(t, 2, exitErr.code)
		})
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run(&out, &errOut, []string{writeConfig(t, "pool {\n  workers = 2\n}\n")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing job block")
}
