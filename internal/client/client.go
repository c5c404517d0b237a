/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"ledger-exchange-go/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/net/http2"
)

const IdempotencyHeader = "Idempotency-Key"

// Client talks to the ledger HTTP API. It is safe for concurrent use.
type Client struct {
	baseUrl    string
	httpClient http.Client
}

func New(baseUrl string, maxConnsPerHost int) (*Client, error) {
	httpClient, err := createCustomHttpClient(maxConnsPerHost)
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	return &Client{
		baseUrl:    strings.TrimRight(baseUrl, "/"),
		httpClient: httpClient,
	}, nil
}

func createCustomHttpClient(maxConnsPerHost int) (http.Client, error) {
	if maxConnsPerHost <= 0 {
		maxConnsPerHost = 5
	}
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          maxConnsPerHost * 2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   maxConnsPerHost,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   60 * time.Second,
	}, nil
}

type createAccountBody struct {
	Name    string      `json:"name"`
	Balance json.Number `json:"balance"`
}

type transferBody struct {
	FromAccountId int64       `json:"fromAccountId"`
	ToAccountId   int64       `json:"toAccountId"`
	Amount        json.Number `json:"amount"`
}

func (c *Client) CreateAccount(ctx context.Context, name string, balance decimal.Decimal) (models.Result, error) {
	return c.do(ctx, http.MethodPost, "/v1/accounts", createAccountBody{
		Name:    name,
		Balance: json.Number(balance.String()),
	}, nil)
}

func (c *Client) GetAccount(ctx context.Context, id int64) (models.Result, error) {
	return c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/accounts/%d", id), nil, nil)
}

func (c *Client) GetAllAccounts(ctx context.Context) (models.Result, error) {
	return c.do(ctx, http.MethodGet, "/v1/accounts", nil, nil)
}

// Transfer submits one transfer attempt. A non-empty idempotencyKey makes
// retries of the same request safe.
func (c *Client) Transfer(ctx context.Context, req models.TransferRequest, idempotencyKey string) (models.Result, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers[IdempotencyHeader] = idempotencyKey
	}
	return c.do(ctx, http.MethodPost, "/v1/transfers", transferBody{
		FromAccountId: req.FromAccountId,
		ToAccountId:   req.ToAccountId,
		Amount:        json.Number(req.Amount.String()),
	}, headers)
}

// do sends the request and decodes the result envelope. Transport failures
// and undecodable bodies are errors; ledger failures come back as a Result.
func (c *Client) do(ctx context.Context, method, path string, body any, headers map[string]string) (models.Result, error) {
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			return models.Result{}, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseUrl+path, &payload)
	if err != nil {
		return models.Result{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Result{}, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	var result models.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.Result{}, fmt.Errorf("%s %s: unable to decode response (status %d): %w", method, path, resp.StatusCode, err)
	}
	if result.Error {
		result.Kind = KindForStatus(resp.StatusCode)
	}
	return result, nil
}

// KindForStatus recovers the failure kind from an HTTP status code.
func KindForStatus(status int) models.ErrorKind {
	switch status {
	case http.StatusNotFound:
		return models.KindNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return models.KindValidation
	case http.StatusConflict:
		return models.KindConflict
	default:
		return models.KindPersistence
	}
}
