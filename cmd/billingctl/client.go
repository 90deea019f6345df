package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Developmizer/Rental-Gates-sub002/internal/middleware"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

const (
	requestTimeout  = 25 * time.Minute
	requestTokenTTL = 5 * time.Minute
)

type clientOptions struct {
	baseURL string
	caller  string
}

type triggerClient struct {
	baseURL string
	caller  string
	secret  []byte
	http    *http.Client
}

func (o *clientOptions) client() (*triggerClient, error) {
	secret := os.Getenv("TRIGGER_JWT_SECRET")
	if secret == "" {
		return nil, errors.New("TRIGGER_JWT_SECRET env var is missing")
	}
	return &triggerClient{
		baseURL: strings.TrimRight(o.baseURL, "/"),
		caller:  o.caller,
		secret:  []byte(secret),
		http:    &http.Client{Timeout: requestTimeout},
	}, nil
}

func (c *triggerClient) token(ttl time.Duration) (string, error) {
	return middleware.MintTriggerToken(c.secret, c.caller, ttl)
}

// post sends body as JSON with a short-lived trigger token and returns the
// raw response on 2xx.
func (c *triggerClient) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	tok, err := c.token(requestTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("mint trigger token: %w", err)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr utils.ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Code != "" {
			return nil, fmt.Errorf("%s (%d): %s", apiErr.Code, resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return raw, nil
}

func (c *triggerClient) postAndPrint(cmd *cobra.Command, path string, body any) error {
	utils.Logger.WithField("caller", c.caller).Debugf("POST %s%s", c.baseURL, path)
	raw, err := c.post(cmd.Context(), path, body)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		_, err = cmd.OutOrStdout().Write(raw)
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
	return nil
}
