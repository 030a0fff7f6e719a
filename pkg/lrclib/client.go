package lrclib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chrimage/ai-lyric-video-generator/pkg/ratelimit"
)

// Client talks to a lrclib-compatible synced-lyrics API.
type Client struct {
	client    *http.Client
	debug     bool
	host      string
	ratelimit ratelimit.Lock
}

type Config struct {
	Wait   time.Duration
	Debug  bool
	Client *http.Client
	Host   string
}

func New(cfg *Config) *Client {
	wait := cfg.Wait
	if wait == 0 {
		wait = 1 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: 2 * time.Minute,
		}
	}
	host := cfg.Host
	if host == "" {
		host = "https://lrclib.net"
	}
	return &Client{
		client:    client,
		ratelimit: ratelimit.New(wait),
		debug:     cfg.Debug,
		host:      strings.TrimSuffix(host, "/"),
	}
}

func (c *Client) log(format string, args ...interface{}) {
	if c.debug {
		format += "\n"
		log.Printf(format, args...)
	}
}

var backoff = []time.Duration{
	10 * time.Second,
	30 * time.Second,
	1 * time.Minute,
}

var ErrNotFound = errors.New("lrclib: track not found")

func (c *Client) do(ctx context.Context, path string, values url.Values, out any) error {
	maxAttempts := 3
	attempts := 0
	var err error
	for {
		if err != nil {
			log.Println("retrying...", err)
		}
		err = c.doAttempt(ctx, path, values, out)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNotFound) {
			return err
		}
		attempts++
		if attempts >= maxAttempts {
			return err
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			continue
		}
		var errStatus errStatusCode
		if !errors.As(err, &errStatus) {
			return err
		}
		switch int(errStatus) {
		case http.StatusBadGateway, http.StatusGatewayTimeout, http.StatusTooManyRequests:
		default:
			return err
		}
		idx := attempts - 1
		if idx >= len(backoff) {
			idx = len(backoff) - 1
		}
		t := time.NewTimer(backoff[idx])
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

type errStatusCode int

func (e errStatusCode) Error() string {
	return fmt.Sprintf("%d", e)
}

func (c *Client) doAttempt(ctx context.Context, path string, values url.Values, out any) error {
	unlock := c.ratelimit.Lock(ctx)
	defer unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}

	u := fmt.Sprintf("%s/api/%s?%s", c.host, path, values.Encode())
	c.log("lrclib: do GET %s", u)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("lrclib: couldn't create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("lrclib: couldn't do request: %w", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("lrclib: couldn't read response body: %w", err)
	}
	c.log("lrclib: response %d %s", resp.StatusCode, string(b))
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lrclib: status %w: %s", errStatusCode(resp.StatusCode), string(b))
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			return fmt.Errorf("lrclib: couldn't unmarshal response (%s): %w", string(b), err)
		}
	}
	return nil
}
