package adapter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

func TestLocalProfileLoader_Builtins(t *testing.T) {
	loader := NewLocalProfileLoader()

	for _, name := range BuiltinProfileNames() {
		t.Run(name, func(t *testing.T) {
			profile, err := loader.Load(context.Background(), name)
			require.NoError(t, err)

			assert.Equal(t, name, profile.Name)
			assert.NotEmpty(t, profile.Binary)
			assert.NotEmpty(t, profile.Builtins)
			assert.Contains(t, profile.Builtins, "gc")
			assert.NoError(t, profile.Validate())
		})
	}
}

func TestLocalProfileLoader_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jsc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: jsc
binary: /opt/jsc/bin/jsc
args: ["--useConcurrentJIT=false"]
env:
  ASAN_OPTIONS: detect_leaks=0
timeout_ms: 500
builtins: [gc, fullGC]
code_suffix: |
  fullGC();
`), 0o600))

	profile, err := NewLocalProfileLoader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, Profile{
		Name:       "jsc",
		Binary:     "/opt/jsc/bin/jsc",
		Args:       []string{"--useConcurrentJIT=false"},
		Env:        map[string]string{"ASAN_OPTIONS": "detect_leaks=0"},
		TimeoutMS:  500,
		Builtins:   []string{"gc", "fullGC"},
		CodeSuffix: "fullGC();\n",
	}, profile)
	assert.Equal(t, 500*time.Millisecond, profile.Timeout())
}

func TestLocalProfileLoader_Errors(t *testing.T) {
	dir := t.TempDir()

	noBinary := filepath.Join(dir, "nobinary.yaml")
	require.NoError(t, os.WriteFile(noBinary, []byte("name: x\n"), 0o600))

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("name: [unclosed\n"), 0o600))

	loader := NewLocalProfileLoader()

	_, err := loader.Load(context.Background(), noBinary)
	require.ErrorIs(t, err, ErrInvalidProfile)

	_, err = loader.Load(context.Background(), broken)
	require.Error(t, err)

	_, err = loader.Load(context.Background(), filepath.Join(dir, "absent.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestProfileTimeoutDefault(t *testing.T) {
	assert.Equal(t, DefaultTimeout, Profile{}.Timeout())
	require.ErrorIs(t, Profile{Binary: "js", TimeoutMS: -1}.Validate(), ErrInvalidProfile)
}

func TestProfileScript(t *testing.T) {
	program := sampleProgram(t)
	body := m.LiftJavaScript(program)

	assert.Equal(t, body, Profile{}.Script(program))
	assert.Equal(t, "'use strict';\n"+body+"gc();\n",
		Profile{CodePrefix: "'use strict';", CodeSuffix: "gc();"}.Script(program))

	loader := NewLocalProfileLoader()

	spidermonkey, err := loader.Load(context.Background(), "spidermonkey")
	require.NoError(t, err)
	assert.Equal(t, body+"gc();\n", spidermonkey.Script(program))

	v8, err := loader.Load(context.Background(), "v8")
	require.NoError(t, err)

	script := v8.Script(program)
	assert.True(t, strings.HasPrefix(script, "function opt(p0, p1) {\n"+body+"}\n"))
	assert.Contains(t, script, "%OptimizeFunctionOnNextCall(opt);")
}
