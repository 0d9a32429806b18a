package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/abelbrown/hnfeed/internal/config"
	"github.com/abelbrown/hnfeed/internal/feed"
	"github.com/abelbrown/hnfeed/internal/fetch"
	"github.com/abelbrown/hnfeed/internal/hn"
	"github.com/abelbrown/hnfeed/internal/otel"
	"github.com/abelbrown/hnfeed/internal/story"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) verboseEnabled() bool {
	return c.verbose != nil && *c.verbose
}

// newClient builds the Remote API client from the loaded config.
func (c *commandContext) newClient() (*hn.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return hn.NewClient(cfg.ClientOptions()), nil
}

// newController wires client, fetcher and controller for feedType.
func (c *commandContext) newController(feedType story.FeedType, events otel.Emitter) (*feed.Controller, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	client := hn.NewClient(cfg.ClientOptions())
	fetcher := fetch.NewFetcher(client, cfg.Feed.FetchWidth, events)
	return feed.New(client, fetcher, feed.Config{
		FeedType: feedType,
		PageSize: cfg.Feed.PageSize,
		MaxItems: cfg.Feed.MaxItems,
		Events:   events,
	}), nil
}

// openEvents returns the JSONL event trail, or a discarding logger when the
// trail is disabled. Callers must Close it.
func (c *commandContext) openEvents() (*otel.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Log.Events {
		return otel.NewNullLogger(), nil
	}
	return otel.NewFileLogger(cfg.EventsPath())
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
