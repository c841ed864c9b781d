package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/parser"

	"github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/pkg/tree"
)

// FileName is the scenario file looked up in a directory.
const FileName = "vstore.yaml"

// Default values.
const (
	DefaultName         = "default"
	DefaultProtocol     = ProtocolImmediate
	DefaultDevtoolsAddr = "127.0.0.1:7070"
)

// Binding protocols.
const (
	ProtocolImmediate    = "immediate"
	ProtocolSynchronized = "synchronized"
	ProtocolDeferred     = "deferred"
)

// Config is a parsed scenario.
type Config struct {
	// Name names the store in logs and metrics.
	Name string `yaml:"name"`

	// State is the initial state. Mapping order is preserved.
	State any `yaml:"state"`

	// Bindings are the consumers attached before the steps run.
	Bindings []Binding `yaml:"bindings"`

	// Steps run in order against the store.
	Steps []Step `yaml:"steps"`

	// Devtools configures the inspector server.
	Devtools Devtools `yaml:"devtools"`

	file   string
	source []byte
	root   *tree.Node
}

// Binding declares one consumer.
type Binding struct {
	Name     string   `yaml:"name"`
	Protocol string   `yaml:"protocol"`
	Reads    []string `yaml:"reads"`
	Delay    string   `yaml:"delay,omitempty"`

	paths []tree.Path
	delay time.Duration
}

// Devtools configures the inspector server.
type Devtools struct {
	Addr string `yaml:"addr"`
}

// Default returns a Config with default values and an empty object state.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads FileName from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile reads and validates a scenario file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetailf("%s does not exist", path).
				WithSuggestion("Pass the path of a scenario file, or create " + FileName)
		}
		return nil, errors.New("E100").Wrap(err).WithDetail(err.Error())
	}
	cfg, err := parse(path, data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes and validates scenario YAML. name is used in error
// locations.
func Parse(name string, data []byte) (*Config, error) {
	return parse(name, data)
}

func parse(file string, data []byte) (*Config, error) {
	cfg := &Config{file: file, source: data}
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.UseOrderedMap(), yaml.DisallowUnknownField()); err != nil {
		return nil, errors.New("E101").
			Wrap(err).
			WithDetail(yaml.FormatError(err, false, false)).
			WithLocationFromError(file, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.State == nil {
		c.State = yaml.MapSlice{}
	}
	if c.Devtools.Addr == "" {
		c.Devtools.Addr = DefaultDevtoolsAddr
	}
	for i := range c.Bindings {
		if c.Bindings[i].Protocol == "" {
			c.Bindings[i].Protocol = DefaultProtocol
		}
	}
}

// Validate checks the scenario and resolves paths and durations. The
// returned error names the offending field.
func (c *Config) Validate() error {
	root, err := tree.From(c.State)
	if err != nil {
		return c.fail("E102", "$.state", err.Error())
	}
	c.root = root

	seen := make(map[string]int, len(c.Bindings))
	for i := range c.Bindings {
		b := &c.Bindings[i]
		field := fmt.Sprintf("$.bindings[%d]", i)
		if b.Name == "" {
			return c.fail("E120", field, field+".name is required")
		}
		if j, dup := seen[b.Name]; dup {
			return c.fail("E120", field+".name",
				fmt.Sprintf("binding %q is declared twice (bindings[%d] and bindings[%d])", b.Name, j, i))
		}
		seen[b.Name] = i

		switch b.Protocol {
		case ProtocolImmediate, ProtocolSynchronized, ProtocolDeferred:
		default:
			return c.fail("E121", field+".protocol",
				fmt.Sprintf("binding %q has protocol %q", b.Name, b.Protocol)).
				WithSuggestion("Use one of: immediate, synchronized, deferred")
		}

		if len(b.Reads) == 0 {
			return c.fail("E120", field+".reads", fmt.Sprintf("binding %q reads nothing", b.Name))
		}
		b.paths = b.paths[:0]
		for j, r := range b.Reads {
			p, err := tree.ParsePath(r)
			if err != nil {
				return c.fail("E122", fmt.Sprintf("%s.reads[%d]", field, j), err.Error())
			}
			b.paths = append(b.paths, p)
		}

		b.delay = 0
		if b.Delay != "" {
			if b.Protocol != ProtocolDeferred {
				return c.fail("E120", field+".delay",
					fmt.Sprintf("binding %q is %s; only deferred bindings take a delay", b.Name, b.Protocol))
			}
			d, err := parseDuration(b.Delay)
			if err != nil {
				return c.fail("E124", field+".delay", err.Error())
			}
			b.delay = d
		}
	}

	for i := range c.Steps {
		if err := c.Steps[i].compile(); err != nil {
			return c.fail(err.code, fmt.Sprintf("$.steps[%d]%s", i, err.field), err.msg)
		}
	}

	if _, _, err := net.SplitHostPort(c.Devtools.Addr); err != nil {
		return c.fail("E125", "$.devtools.addr", err.Error())
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %s is negative", s)
	}
	return d, nil
}

// fail builds a coded error for the field at the YAML path field.
func (c *Config) fail(code, field, detail string) *errors.Error {
	err := errors.New(code).WithDetail(field + ": " + detail)
	if line, col := c.position(field); line > 0 {
		err.WithLocation(c.file, line, col)
	}
	return err
}

// position finds the line and column of a YAML path in the source, or 0.
func (c *Config) position(field string) (int, int) {
	if len(c.source) == 0 {
		return 0, 0
	}
	p, err := yaml.PathString(field)
	if err != nil {
		return 0, 0
	}
	f, err := parser.ParseBytes(c.source, 0)
	if err != nil {
		return 0, 0
	}
	node, err := p.FilterFile(f)
	if err != nil || node == nil || node.GetToken() == nil {
		return 0, 0
	}
	pos := node.GetToken().Position
	return pos.Line, pos.Column
}

// File returns the path the scenario was loaded from.
func (c *Config) File() string { return c.file }

// InitialState returns the validated initial state.
func (c *Config) InitialState() *tree.Node {
	if c.root == nil {
		c.root, _ = tree.From(c.State)
	}
	return c.root
}

// Binding returns the binding named name.
func (c *Config) Binding(name string) (Binding, bool) {
	for _, b := range c.Bindings {
		if b.Name == name {
			return b, true
		}
	}
	return Binding{}, false
}

// Paths returns the parsed read paths. Valid after Validate.
func (b Binding) Paths() []tree.Path { return b.paths }

// DelayDuration returns the parsed delay. Valid after Validate.
func (b Binding) DelayDuration() time.Duration { return b.delay }

// Exists reports whether dir contains a scenario file.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}

// FindScenario walks up from dir looking for FileName and returns the
// directory that contains it.
func FindScenario(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if Exists(abs) {
			return abs, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", errors.New("E100").
				WithDetailf("no %s found in %s or any parent directory", FileName, dir)
		}
		abs = parent
	}
}
