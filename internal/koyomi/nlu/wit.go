package nlu

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/bdobrica/Koyomi/common/version"
)

const (
	defaultWitBase    = "https://api.wit.ai"
	defaultWitVersion = "20240304"
	defaultTimeout    = 30 * time.Second
)

//go:embed wit_message.schema.json
var witMessageSchema string

// WitConfig configures the Wit.ai classifier.
type WitConfig struct {
	// Token is the server access token of the Wit app.
	Token string
	// BaseURL overrides the API endpoint. Defaults to https://api.wit.ai.
	BaseURL string
	// Version is the API version date sent as the "v" query parameter.
	Version string
	// Timeout is the HTTP request timeout. Defaults to 30 s.
	Timeout time.Duration
}

// Wit classifies messages with the Wit.ai /message endpoint. Responses are
// validated against an embedded JSON schema before they are decoded, so a
// changed or broken upstream surfaces as ErrMalformedOutput instead of as an
// empty classification.
type Wit struct {
	cfg    WitConfig
	client *http.Client
	schema *jsonschema.Schema
}

// NewWit returns a Wit classifier. It is safe for concurrent use.
func NewWit(cfg WitConfig) (*Wit, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("nlu: wit token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultWitBase
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Version == "" {
		cfg.Version = defaultWitVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	schema, err := jsonschema.CompileString("wit_message.schema.json", witMessageSchema)
	if err != nil {
		return nil, fmt.Errorf("nlu: compile wit response schema: %w", err)
	}
	return &Wit{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		schema: schema,
	}, nil
}

type witError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Classify sends text to Wit and returns the raw classification.
func (w *Wit) Classify(ctx context.Context, text string) (*RawClassification, error) {
	q := url.Values{}
	q.Set("v", w.cfg.Version)
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.cfg.BaseURL+"/message?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("nlu: create http request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.cfg.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nlu: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("nlu: read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimit
	case resp.StatusCode != http.StatusOK:
		var we witError
		if json.Unmarshal(body, &we) == nil && we.Error != "" {
			return nil, fmt.Errorf("nlu: wit error (HTTP %d, %s): %s", resp.StatusCode, we.Code, we.Error)
		}
		return nil, fmt.Errorf("nlu: wit returned HTTP %d", resp.StatusCode)
	}

	return w.decode(body)
}

func (w *Wit) decode(body []byte) (*RawClassification, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if err := w.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	var out RawClassification
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return &out, nil
}
