package utils

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// VatCheckResult is the outcome of a VIES VAT registry lookup.
type VatCheckResult struct {
	Valid   bool   `json:"valid"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type ViesClientInterface interface {
	CheckVat(countryCode, vatNumber string) (*VatCheckResult, error)
}

type ViesClient struct {
	endpoint   string
	httpClient *http.Client
}

func NewViesClient(endpoint string) ViesClientInterface {
	return &ViesClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

const viesEnvelope = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <checkVat xmlns="urn:ec.europa.eu:taxud:vies:services:checkVat:types">
      <countryCode>%s</countryCode>
      <vatNumber>%s</vatNumber>
    </checkVat>
  </soap:Body>
</soap:Envelope>`

type viesResponse struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		CheckVatResponse struct {
			Valid   bool   `xml:"valid"`
			Name    string `xml:"name"`
			Address string `xml:"address"`
		} `xml:"checkVatResponse"`
	} `xml:"Body"`
}

func (v *ViesClient) CheckVat(countryCode, vatNumber string) (*VatCheckResult, error) {
	envelope := fmt.Sprintf(viesEnvelope, strings.ToUpper(countryCode), vatNumber)

	resp, err := v.httpClient.Post(v.endpoint, "text/xml; charset=utf-8", strings.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("vies request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vies returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed viesResponse
	if err := xml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("vies response parse failed: %w", err)
	}

	r := parsed.Body.CheckVatResponse
	return &VatCheckResult{Valid: r.Valid, Name: r.Name, Address: r.Address}, nil
}
