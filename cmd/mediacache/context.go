package main

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"mediacache/internal/config"
	"mediacache/internal/execx"
	"mediacache/internal/logging"
)

type commandContext struct {
	configFlag string
	jsonFlag   bool

	// runner and newLogger are replaced in tests.
	runner    execx.Runner
	newLogger func(*config.Config) (*slog.Logger, error)

	configOnce sync.Once
	config     *config.Config
	configErr  error

	runtimeOnce sync.Once
	runtime     *runtime
	runtimeErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{
		runner:    execx.NewCommandRunner(),
		newLogger: logging.NewFromConfig,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureRuntime opens the database and wires the pipeline once per invocation.
func (c *commandContext) ensureRuntime() (*runtime, error) {
	c.runtimeOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.runtimeErr = err
			return
		}
		logger, err := c.newLogger(cfg)
		if err != nil {
			c.runtimeErr = err
			return
		}
		c.runtime, c.runtimeErr = openRuntime(cfg, logger, c.runner)
	})
	return c.runtime, c.runtimeErr
}

func (c *commandContext) withRuntime(fn func(*runtime) error) error {
	rt, err := c.ensureRuntime()
	if err != nil {
		return err
	}
	return fn(rt)
}

func (c *commandContext) close() error {
	if c.runtime == nil {
		return nil
	}
	err := c.runtime.Close()
	c.runtime = nil
	if errors.Is(err, errRuntimeClosed) {
		return nil
	}
	return err
}

func (c *commandContext) JSONMode() bool {
	return c.jsonFlag
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
