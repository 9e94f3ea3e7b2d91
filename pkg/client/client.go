// Copyright 2025 The fpath Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package client is a thin FHIR REST client covering the two interactions
// the engine performs: reading a resource by reference, and invoking the
// ValueSet/$validate-code operation on a terminology server. Response
// bodies are treated as opaque JSON except for the handful of fields the
// engine inspects.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/fhir-sigs/fpath/pkg/fhir"
)

const (
	fhirJSON = "application/fhir+json"

	defaultTimeout = 30 * time.Second
)

// ErrNotFound indicates the server answered 404 or 410 for a read.
// Callers treat it as "resolved to nothing", not as a failure.
var ErrNotFound = errors.New("resource not found")

// IsNotFound reports whether the error chain contains ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger. Defaults to logr.Discard().
func WithLogger(log logr.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// Client issues FHIR REST requests against one base endpoint.
type Client struct {
	base *url.URL
	http *http.Client
	log  logr.Logger
}

// New creates a Client for the given base URL. The base may be empty, in
// which case only absolute references can be read.
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		http: &http.Client{Timeout: defaultTimeout},
		log:  logr.Discard(),
	}
	if baseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
		}
		c.base = base
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Read fetches the resource behind a literal reference and returns its
// JSON representation. Relative references are resolved against the base
// URL; 404 and 410 map to ErrNotFound.
func (c *Client) Read(ctx context.Context, reference string) (map[string]any, error) {
	target, err := c.resolveURL(reference)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %q: %w", reference, err)
	}
	req.Header.Set("Accept", fhirJSON)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", reference, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		c.log.V(1).Info("resource not found", "reference", reference, "status", resp.StatusCode)
		return nil, fmt.Errorf("%q: %w", reference, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, c.statusError(resp, reference)
	}

	var resource map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&resource); err != nil {
		return nil, fmt.Errorf("decoding %q: %w", reference, err)
	}
	return resource, nil
}

// Operation POSTs a Parameters resource to {base}/{path} and decodes the
// Parameters response.
func (c *Client) Operation(ctx context.Context, path string, params *fhir.Parameters) (*fhir.Parameters, error) {
	if c.base == nil {
		return nil, fmt.Errorf("no base URL configured for operation %q", path)
	}
	target := c.base.JoinPath(path).String()

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding parameters for %q: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request for %q: %w", path, err)
	}
	req.Header.Set("Accept", fhirJSON)
	req.Header.Set("Content-Type", fhirJSON)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoking %q: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, path)
	}

	var out fhir.Parameters
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response of %q: %w", path, err)
	}
	return &out, nil
}

// resolveURL turns a literal reference into an absolute URL.
func (c *Client) resolveURL(reference string) (string, error) {
	ref, err := url.Parse(reference)
	if err != nil {
		return "", fmt.Errorf("invalid reference %q: %w", reference, err)
	}
	if ref.IsAbs() {
		return reference, nil
	}
	if c.base == nil {
		return "", fmt.Errorf("relative reference %q requires a base URL", reference)
	}
	return c.base.ResolveReference(ref).String(), nil
}

// statusError converts a non-2xx response into an error, surfacing the
// server's OperationOutcome when the body carries one.
func (c *Client) statusError(resp *http.Response, subject string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var outcome fhir.OperationOutcome
	if err := json.Unmarshal(body, &outcome); err == nil &&
		outcome.ResourceType == "OperationOutcome" && len(outcome.Issue) > 0 {
		return &fhir.OutcomeError{
			Outcome: &outcome,
			Err:     fmt.Errorf("%q: server returned %s", subject, resp.Status),
		}
	}
	return fmt.Errorf("%q: server returned %s", subject, resp.Status)
}
