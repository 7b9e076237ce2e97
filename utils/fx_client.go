package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRateNotFound means the provider response carried no usable rate.
var ErrRateNotFound = errors.New("fx rate not found in provider response")

// FXQuote is the canonical quote shape the rest of the system consumes.
// Normalizing the provider's field naming happens here, at the boundary.
type FXQuote struct {
	Base      string          `json:"base"`
	Quote     string          `json:"quote"`
	Amount    float64         `json:"amount"`
	Rate      decimal.Decimal `json:"rate"`
	Converted decimal.Decimal `json:"converted"`
	Date      string          `json:"date"`
}

type FXClientInterface interface {
	Quote(base, quote string, amount float64) (*FXQuote, error)
}

type FXClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewFXClient(baseURL, apiKey string) FXClientInterface {
	return &FXClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *FXClient) Quote(base, quote string, amount float64) (*FXQuote, error) {
	base = strings.ToUpper(base)
	quote = strings.ToUpper(quote)

	params := url.Values{}
	params.Set("amount", decimal.NewFromFloat(amount).String())
	params.Set("from", base)
	params.Set("to", quote)

	req, err := http.NewRequest(http.MethodGet, f.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fx quote request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fx quote returned status %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("fx quote decode failed: %w", err)
	}

	rate, err := extractRate(body, quote, amount)
	if err != nil {
		return nil, err
	}

	result := &FXQuote{
		Base:      base,
		Quote:     quote,
		Amount:    amount,
		Rate:      rate,
		Converted: rate.Mul(decimal.NewFromFloat(amount)),
	}
	if date, ok := body["date"].(string); ok {
		result.Date = date
	}
	return result, nil
}

// extractRate tolerates the rate appearing under different keys depending on
// the provider: a direct rate field (rate, fx_rate, price) or a rates map of
// converted amounts keyed by target currency.
func extractRate(body map[string]any, quote string, amount float64) (decimal.Decimal, error) {
	for _, key := range []string{"rate", "fx_rate", "price"} {
		if raw, ok := body[key].(float64); ok && raw != 0 {
			return decimal.NewFromFloat(raw), nil
		}
	}

	rates, ok := body["rates"].(map[string]any)
	if !ok {
		return decimal.Zero, ErrRateNotFound
	}
	converted, ok := rates[quote].(float64)
	if !ok || converted == 0 || amount == 0 {
		return decimal.Zero, ErrRateNotFound
	}
	return decimal.NewFromFloat(converted).Div(decimal.NewFromFloat(amount)), nil
}
