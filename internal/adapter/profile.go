package adapter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

// DefaultTimeout is used when a profile does not set timeout_ms.
const DefaultTimeout = 250 * time.Millisecond

// ErrInvalidProfile is returned for profiles that cannot drive a target.
var ErrInvalidProfile = errors.New("invalid profile")

// Profile describes how to run a target runtime.
type Profile struct {
	Name      string            `yaml:"name"`
	Binary    string            `yaml:"binary"`
	Args      []string          `yaml:"args"`
	Env       map[string]string `yaml:"env"`
	TimeoutMS int               `yaml:"timeout_ms"`
	Builtins  []string          `yaml:"builtins"`

	// CodePrefix and CodeSuffix wrap every lifted program.
	CodePrefix string `yaml:"code_prefix"`
	CodeSuffix string `yaml:"code_suffix"`
}

// Script returns the JavaScript run for program: the lifted program
// wrapped in the profile's prefix and suffix.
func (p Profile) Script(program *m.Program) string {
	var b strings.Builder

	b.WriteString(p.CodePrefix)

	if p.CodePrefix != "" && !strings.HasSuffix(p.CodePrefix, "\n") {
		b.WriteByte('\n')
	}

	b.WriteString(m.LiftJavaScript(program))
	b.WriteString(p.CodeSuffix)

	if p.CodeSuffix != "" && !strings.HasSuffix(p.CodeSuffix, "\n") {
		b.WriteByte('\n')
	}

	return b.String()
}

// Timeout returns the per-execution timeout.
func (p Profile) Timeout() time.Duration {
	if p.TimeoutMS <= 0 {
		return DefaultTimeout
	}

	return time.Duration(p.TimeoutMS) * time.Millisecond
}

// Validate checks the fields the executor depends on.
func (p Profile) Validate() error {
	if p.Binary == "" {
		return fmt.Errorf("profile %q has no binary: %w", p.Name, ErrInvalidProfile)
	}

	if p.TimeoutMS < 0 {
		return fmt.Errorf("profile %q has negative timeout: %w", p.Name, ErrInvalidProfile)
	}

	return nil
}

var builtinProfiles = map[string]Profile{
	"spidermonkey": {
		Name:   "spidermonkey",
		Binary: "js",
		Args: []string{
			"--baseline-warmup-threshold=10",
			"--ion-warmup-threshold=100",
			"--ion-check-range-analysis",
			"--ion-extra-checks",
			"--fuzzing-safe",
			"--disable-oom-functions",
		},
		Env:        map[string]string{"UBSAN_OPTIONS": "handle_segv=0"},
		TimeoutMS:  250,
		Builtins:   []string{"gc", "enqueueJob", "drainJobQueue", "bailout"},
		CodeSuffix: "gc();\n",
	},
	"v8": {
		Name:   "v8",
		Binary: "d8",
		Args: []string{
			"--expose-gc",
			"--omit-quit",
			"--allow-natives-syntax",
			"--fuzzing",
			"--jit-fuzzing",
			"--future",
			"--harmony",
		},
		TimeoutMS:  250,
		Builtins:   []string{"gc", "d8", "Worker"},
		CodePrefix: "function opt(p0, p1) {\n",
		CodeSuffix: `}
opt(false, 0);
%PrepareFunctionForOptimization(opt);
opt(true, 0);
%OptimizeFunctionOnNextCall(opt);
opt(false, 0);
`,
	},
}

// ProfileLoader resolves a profile by built-in name or YAML file path.
type ProfileLoader interface {
	Load(ctx context.Context, nameOrPath string) (Profile, error)
}

// LocalProfileLoader loads profiles from the built-in table or from disk.
type LocalProfileLoader struct{}

// NewLocalProfileLoader constructs a LocalProfileLoader.
func NewLocalProfileLoader() *LocalProfileLoader {
	return &LocalProfileLoader{}
}

// Load returns the built-in profile called nameOrPath, or parses the YAML
// file at that path.
func (l *LocalProfileLoader) Load(ctx context.Context, nameOrPath string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}

	if profile, ok := builtinProfiles[nameOrPath]; ok {
		return profile, nil
	}

	content, err := os.ReadFile(nameOrPath)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile %s: %w", nameOrPath, err)
	}

	var profile Profile
	if err := yaml.Unmarshal(content, &profile); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", nameOrPath, err)
	}

	if profile.Name == "" {
		profile.Name = nameOrPath
	}

	if err := profile.Validate(); err != nil {
		return Profile{}, err
	}

	return profile, nil
}

// BuiltinProfileNames lists the profiles available without a file.
func BuiltinProfileNames() []string {
	return []string{"spidermonkey", "v8"}
}
