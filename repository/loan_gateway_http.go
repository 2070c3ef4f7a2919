package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"loan-calculator/domain"
)

// HTTPLoanGateway talks JSON over HTTP to the SACCO loan API.
type HTTPLoanGateway struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewHTTPLoanGateway(baseURL string, timeout time.Duration, log *zap.Logger) *HTTPLoanGateway {
	return &HTTPLoanGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// ListProducts fetches the loan product catalog. A response without items
// is an empty catalog, not an error.
func (g *HTTPLoanGateway) ListProducts(ctx context.Context) ([]domain.LoanProduct, error) {
	var resp productsResponse
	if err := g.do(ctx, http.MethodGet, productsPath, nil, &resp); err != nil {
		return nil, err
	}

	products, err := resp.toDomain()
	if err != nil {
		return nil, decodeError(err)
	}
	return products, nil
}

// Calculate asks the backend for an amortization schedule.
func (g *HTTPLoanGateway) Calculate(
	ctx context.Context,
	req domain.CalculationRequest,
) (domain.CalculationResult, error) {
	var resp calcResponse
	if err := g.do(ctx, http.MethodPost, calcPath, req, &resp); err != nil {
		return domain.CalculationResult{}, err
	}

	result, err := resp.toDomain()
	if err != nil {
		return domain.CalculationResult{}, decodeError(err)
	}
	if !result.Summary.Consistent() {
		g.log.Warn("summary total payable does not match principal plus interest",
			zap.String("product_key", req.ProductKey),
			zap.String("total_payable", result.Summary.TotalPayable.String()))
	}
	return result, nil
}

func (g *HTTPLoanGateway) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		g.log.Warn("loan api request failed",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		return &APIError{Kind: domain.KindNetwork, Message: err.Error(), Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		_ = resp.Body.Close()
	}()

	g.log.Debug("loan api response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Kind:       domain.KindNetwork,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%d %s: %s", resp.StatusCode, http.StatusText(resp.StatusCode), msgRequestFailed),
		}
	}

	if !isJSON(resp.Header.Get("Content-Type")) {
		return &APIError{Kind: domain.KindDecode, StatusCode: resp.StatusCode, Message: msgExpectedJSON}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return decodeError(err)
	}
	if err := validate.Struct(out); err != nil {
		return decodeError(err)
	}
	return nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func decodeError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &APIError{
		Kind:    domain.KindDecode,
		Message: "malformed loan service response: " + err.Error(),
		Err:     err,
	}
}
