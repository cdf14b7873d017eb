/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config holds the settings of the planning bridge. The
// explain-analyze toggle is dynamic: it may be flipped at any time, from a
// flag, a watched config file or code, and is read at materialization time.
// The engine settings are static once the engine has been opened.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vtbridge/vtbridge/go/vt/log"
	"github.com/vtbridge/vtbridge/go/vt/utils"
)

// Config keys, shared by flags and config files.
const (
	KeyExplainAnalyze = "explain-analyze"
	KeyEngine         = "engine"
	KeyDSN            = "dsn"
	KeyDataDir        = "data-dir"
)

// Supported alternate engine kinds.
const (
	EngineSQLite = "sqlite"
	EngineMySQL  = "mysql"
)

// Config is the bridge configuration.
type Config struct {
	explainAnalyze atomic.Bool

	mu      sync.RWMutex
	engine  string
	dsn     string
	dataDir string

	watching    bool
	subscribers []chan<- struct{}
}

// Default is the process-wide configuration used by the command line
// tools. Library callers pass their own *Config.
var Default = New()

// New returns a configuration with defaults: the in-process sqlite engine
// with in-memory databases and plain EXPLAIN.
func New() *Config {
	return &Config{engine: EngineSQLite}
}

// ExplainAnalyze reports whether bridged EXPLAIN requests ask the alternate
// engine for execution statistics.
func (c *Config) ExplainAnalyze() bool {
	return c.explainAnalyze.Load()
}

// SetExplainAnalyze sets the explain-analyze toggle.
func (c *Config) SetExplainAnalyze(v bool) {
	c.explainAnalyze.Store(v)
}

// Engine returns the alternate engine kind.
func (c *Config) Engine() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine
}

// DSN returns the data source name of a remote alternate engine.
func (c *Config) DSN() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dsn
}

// DataDir returns the directory holding the embedded engine's database
// files. Empty means in-memory databases.
func (c *Config) DataDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dataDir
}

// SetEngine sets the engine kind and its connection settings.
func (c *Config) SetEngine(kind, dsn, dataDir string) error {
	if err := validateEngine(kind); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine, c.dsn, c.dataDir = kind, dsn, dataDir
	return nil
}

func validateEngine(kind string) error {
	switch kind {
	case EngineSQLite, EngineMySQL:
		return nil
	}
	return fmt.Errorf("unknown engine %q, expected %s or %s", kind, EngineSQLite, EngineMySQL)
}

// RegisterFlags installs the configuration flags on fs, bound to c.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	utils.SetFlagVar(fs, (*explainAnalyzeValue)(c), KeyExplainAnalyze, "Request execution statistics from the alternate engine when explaining bridged queries.")
	fs.Lookup(KeyExplainAnalyze).NoOptDefVal = "true"
	utils.SetFlagVar(fs, &stringValue{c: c, get: (*Config).Engine, set: func(c *Config, s string) error {
		if err := validateEngine(s); err != nil {
			return err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		c.engine = s
		return nil
	}}, KeyEngine, "Alternate engine kind: sqlite or mysql.")
	utils.SetFlagVar(fs, &stringValue{c: c, get: (*Config).DSN, set: func(c *Config, s string) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.dsn = s
		return nil
	}}, KeyDSN, "Data source name of the mysql alternate engine.")
	utils.SetFlagVar(fs, &stringValue{c: c, get: (*Config).DataDir, set: func(c *Config, s string) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.dataDir = s
		return nil
	}}, KeyDataDir, "Directory for the sqlite engine's database files; in-memory when empty.")
}

type explainAnalyzeValue Config

func (v *explainAnalyzeValue) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	(*Config)(v).SetExplainAnalyze(b)
	return nil
}

func (v *explainAnalyzeValue) String() string {
	return strconv.FormatBool((*Config)(v).ExplainAnalyze())
}

func (v *explainAnalyzeValue) Type() string {
	return "bool"
}

type stringValue struct {
	c   *Config
	get func(*Config) string
	set func(*Config, string) error
}

func (v *stringValue) Set(s string) error { return v.set(v.c, s) }
func (v *stringValue) String() string     { return v.get(v.c) }
func (v *stringValue) Type() string       { return "string" }

func newViper(fs afero.Fs, path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return v, nil
}

// Load reads the configuration file at path from fs and applies every key
// it sets. Keys the file does not mention keep their current value.
func (c *Config) Load(fs afero.Fs, path string) error {
	v, err := newViper(fs, path)
	if err != nil {
		return err
	}
	return c.apply(v, true)
}

func (c *Config) apply(v *viper.Viper, static bool) error {
	if v.IsSet(KeyExplainAnalyze) {
		c.SetExplainAnalyze(v.GetBool(KeyExplainAnalyze))
	}
	if !static {
		return nil
	}
	engine := c.Engine()
	if v.InConfig(KeyEngine) {
		engine = v.GetString(KeyEngine)
	}
	dsn := c.DSN()
	if v.IsSet(KeyDSN) {
		dsn = v.GetString(KeyDSN)
	}
	dataDir := c.DataDir()
	if v.IsSet(KeyDataDir) {
		dataDir = v.GetString(KeyDataDir)
	}
	return c.SetEngine(engine, dsn, dataDir)
}

// Notify registers ch to receive a signal after every reload of a watched
// config file. It must be called before Watch.
func (c *Config) Notify(ch chan<- struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watching {
		panic("cannot Notify after starting to watch a config")
	}
	c.subscribers = append(c.subscribers, ch)
}

// Watch loads the configuration file at path from the OS filesystem and
// keeps watching it. On every change the dynamic settings are reloaded;
// the static engine settings are only read once.
func (c *Config) Watch(path string) error {
	c.mu.Lock()
	if c.watching {
		c.mu.Unlock()
		return errors.New("duplicate watch")
	}
	c.watching = true
	subscribers := c.subscribers
	c.mu.Unlock()

	v, err := newViper(afero.NewOsFs(), path)
	if err != nil {
		return err
	}
	if err := c.apply(v, true); err != nil {
		return err
	}
	v.OnConfigChange(func(in fsnotify.Event) {
		if err := c.apply(v, false); err != nil {
			log.WarnS("failed to reload bridge config", "file", in.Name, "error", err)
			return
		}
		log.InfoS("reloaded bridge config", "file", in.Name, KeyExplainAnalyze, c.ExplainAnalyze())
		for _, ch := range subscribers {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	})
	v.WatchConfig()
	return nil
}
