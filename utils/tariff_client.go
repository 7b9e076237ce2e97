package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TariffCandidate is one ranked commodity-code suggestion.
type TariffCandidate struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

type TariffClientInterface interface {
	Search(query string, limit int) ([]TariffCandidate, error)
	Children(code string) ([]TariffCandidate, error)
}

type TariffClient struct {
	baseURL    string
	httpClient *http.Client
	ttl        time.Duration

	mu    sync.Mutex
	cache map[string]tariffCacheEntry
}

type tariffCacheEntry struct {
	expiresAt time.Time
	results   []TariffCandidate
}

func NewTariffClient(baseURL string, ttl time.Duration) TariffClientInterface {
	return &TariffClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		ttl:        ttl,
		cache:      map[string]tariffCacheEntry{},
	}
}

func (t *TariffClient) getCached(key string) ([]TariffCandidate, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.cache[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(t.cache, key)
		return nil, false
	}
	return entry.results, true
}

func (t *TariffClient) setCache(key string, results []TariffCandidate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache[key] = tariffCacheEntry{expiresAt: time.Now().Add(t.ttl), results: results}
}

// Search returns ranked candidate classification codes for a free-text
// description. Results are cached by query text for the client's TTL.
func (t *TariffClient) Search(query string, limit int) ([]TariffCandidate, error) {
	cacheKey := fmt.Sprintf("search:%s:%d", query, limit)
	if cached, ok := t.getCached(cacheKey); ok {
		return cached, nil
	}

	u := fmt.Sprintf("%s/search?q=%s&limit=%s", t.baseURL, url.QueryEscape(query), strconv.Itoa(limit))
	results, err := t.fetch(u)
	if err != nil {
		return nil, err
	}
	t.setCache(cacheKey, results)
	return results, nil
}

// Children returns the more specific codes nested under a commodity code.
func (t *TariffClient) Children(code string) ([]TariffCandidate, error) {
	cacheKey := "children:" + code
	if cached, ok := t.getCached(cacheKey); ok {
		return cached, nil
	}

	u := fmt.Sprintf("%s/commodities/%s/children", t.baseURL, url.PathEscape(code))
	results, err := t.fetch(u)
	if err != nil {
		return nil, err
	}
	t.setCache(cacheKey, results)
	return results, nil
}

func (t *TariffClient) fetch(u string) ([]TariffCandidate, error) {
	resp, err := t.httpClient.Get(u)
	if err != nil {
		return nil, fmt.Errorf("tariff lookup failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tariff lookup returned status %d", resp.StatusCode)
	}

	var body any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("tariff lookup decode failed: %w", err)
	}
	return normalizeTariffResults(body), nil
}

// normalizeTariffResults accepts either a bare array or a {"data": [...]}
// wrapper, and maps the provider's goods_nomenclature_item_id field onto code.
func normalizeTariffResults(body any) []TariffCandidate {
	raw, ok := body.([]any)
	if !ok {
		wrapper, isMap := body.(map[string]any)
		if !isMap {
			return []TariffCandidate{}
		}
		raw, _ = wrapper["data"].([]any)
	}

	results := make([]TariffCandidate, 0, len(raw))
	for _, entry := range raw {
		item, isMap := entry.(map[string]any)
		if !isMap {
			continue
		}
		candidate := TariffCandidate{}
		if code, ok := item["goods_nomenclature_item_id"].(string); ok && code != "" {
			candidate.Code = code
		} else if code, ok := item["code"].(string); ok {
			candidate.Code = code
		}
		if desc, ok := item["description"].(string); ok && desc != "" {
			candidate.Description = desc
		} else {
			candidate.Description = candidate.Code
		}
		if score, ok := item["score"].(float64); ok {
			candidate.Score = score
		}
		results = append(results, candidate)
	}
	return results
}
