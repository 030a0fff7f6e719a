package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/chrimage/ai-lyric-video-generator/pkg/ratelimit"
	openai "github.com/sashabaranov/go-openai"
)

// defaultModel is not a library constant yet at the pinned go-openai
// version, so it is spelled out.
const defaultModel = "gpt-4o-mini"

type Client struct {
	client     *openai.Client
	debug      bool
	model      string
	imageModel string
	ratelimit  ratelimit.Lock
}

type Config struct {
	Debug      bool
	Wait       time.Duration
	Token      string
	Model      string
	ImageModel string
	Host       string
	Client     *http.Client
}

// New returns a client for the openai API.
func New(cfg *Config) *Client {
	wait := cfg.Wait
	if wait == 0 {
		wait = 1 * time.Second
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 5 * time.Minute,
		}
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	imageModel := cfg.ImageModel
	if imageModel == "" {
		imageModel = openai.CreateImageModelDallE3
	}
	openaiCfg := openai.DefaultConfig(cfg.Token)
	openaiCfg.HTTPClient = httpClient
	if cfg.Host != "" {
		openaiCfg.BaseURL = cfg.Host
	}
	return &Client{
		client:     openai.NewClientWithConfig(openaiCfg),
		debug:      cfg.Debug,
		model:      model,
		imageModel: imageModel,
		ratelimit:  ratelimit.New(wait),
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

const maxAttempts = 3

// ChatCompletion sends the message to the chat model and returns the
// text of the first choice.
func (c *Client) ChatCompletion(ctx context.Context, msg string) (string, error) {
	return c.chatCompletion(ctx, msg, false)
}

// ChatCompletionJSON sends the message requesting a JSON object
// response and unmarshals it into out.
func (c *Client) ChatCompletionJSON(ctx context.Context, msg string, out interface{}) error {
	resp, err := c.chatCompletion(ctx, msg, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(resp), out); err != nil {
		return fmt.Errorf("openai: couldn't unmarshal response %q: %w", resp, err)
	}
	return nil
}

func (c *Client) chatCompletion(ctx context.Context, msg string, asJSON bool) (string, error) {
	c.log("openai: chat completion request %q", msg)
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: msg,
			},
		},
	}
	if asJSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	var resp openai.ChatCompletionResponse
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = c.client.CreateChatCompletion(ctx, req)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("openai: couldn't create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: chat completion returned no choices")
	}
	c.log("openai: chat completion response %q", resp.Choices[0].Message.Content)
	return resp.Choices[0].Message.Content, nil
}

// GenerateImage renders the prompt with the image model and returns
// the raw image bytes.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	c.log("openai: image request %q", prompt)
	req := openai.ImageRequest{
		Prompt:         prompt,
		Model:          c.imageModel,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	}
	var resp openai.ImageResponse
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = c.client.CreateImage(ctx, req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("openai: couldn't create image: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("openai: image response has no data")
	}
	b, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("openai: couldn't decode image: %w", err)
	}
	return b, nil
}

func (c *Client) do(ctx context.Context, fn func(context.Context) error) error {
	unlock := c.ratelimit.Lock(ctx)
	defer unlock()

	var attempts int
	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		attempts++
		if attempts >= maxAttempts {
			return fmt.Errorf("%w (%d attempts)", err, attempts)
		}
		idx := attempts - 1
		if idx >= len(backoff) {
			idx = len(backoff) - 1
		}
		wait := backoff[idx]
		c.log("openai: retrying after %s: %v", wait, err)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
