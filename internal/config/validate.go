package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/charmbracelet/log"

	"github.com/abelbrown/hnfeed/internal/story"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateFeed(); err != nil {
		return err
	}
	return c.validateLog()
}

func (c *Config) validateAPI() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.ItemTimeoutSeconds <= 0 {
		return errors.New("api.item_timeout_seconds must be positive")
	}
	if c.API.ListTimeoutSeconds <= 0 {
		return errors.New("api.list_timeout_seconds must be positive")
	}
	if c.API.MaxConnsPerHost <= 0 {
		return errors.New("api.max_conns_per_host must be positive")
	}
	if c.API.RequestsPerSecond < 0 {
		return errors.New("api.requests_per_second must not be negative")
	}
	return nil
}

func (c *Config) validateFeed() error {
	if _, err := story.ParseFeedType(c.Feed.DefaultType); err != nil {
		return fmt.Errorf("feed.default_type: %w", err)
	}
	if c.Feed.PageSize <= 0 {
		return errors.New("feed.page_size must be positive")
	}
	if c.Feed.FetchWidth <= 0 {
		return errors.New("feed.fetch_width must be positive")
	}
	if c.Feed.MaxItems < c.Feed.PageSize {
		return fmt.Errorf("feed.max_items (%d) must be at least feed.page_size (%d)", c.Feed.MaxItems, c.Feed.PageSize)
	}
	return nil
}

func (c *Config) validateLog() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
