package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StatusError: ответ сервера с кодом вне диапазона 2xx.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// IsUnsupported сообщает, что маршрут на узле отсутствует или не принимает метод.
func IsUnsupported(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code {
	case http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusNotImplemented:
		return true
	}
	return false
}

// NewHTTPClient возвращает клиента с общим таймаутом на запрос.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// DoJSON отправляет запрос с JSON-телом (если payload != nil) и возвращает ответ и прочитанное тело.
func DoJSON(ctx context.Context, hc *http.Client, method, url string, payload any) (*http.Response, []byte, error) {
	var rd io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}
	return resp, bytes.TrimSpace(body), nil
}

// PostJSON отправляет JSON POST и декодирует ответ в out.
func PostJSON(ctx context.Context, hc *http.Client, url string, payload, out any) error {
	resp, body, err := DoJSON(ctx, hc, http.MethodPost, url, payload)
	if err != nil {
		return err
	}
	return decode(resp, body, out)
}

// GetJSON выполняет GET и декодирует ответ в out.
func GetJSON(ctx context.Context, hc *http.Client, url string, out any) error {
	resp, body, err := DoJSON(ctx, hc, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return decode(resp, body, out)
}

func decode(resp *http.Response, body []byte, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
