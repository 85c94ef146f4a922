// README: QuickPay REST gateway client (payments, card tokens, card lookup).
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"epsilon/internal/types"
)

// QuickPayClient talks to the QuickPay REST API. It is constructed once at
// startup and injected wherever the gateway contract is needed.
type QuickPayClient struct {
	baseURL    string
	apiKey     string
	version    string
	testMode   bool
	httpClient *http.Client
}

func NewQuickPayClient(baseURL, apiKey, version string, testMode bool) *QuickPayClient {
	return &QuickPayClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		version:    version,
		testMode:   testMode,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type basketItem struct {
	Qty      int     `json:"qty"`
	ItemNo   string  `json:"item_no"`
	ItemName string  `json:"item_name"`
	Price    float64 `json:"item_price"`
	VATRate  float64 `json:"vat_rate"`
}

// CreatePayment registers a payment for the order and returns the gateway's
// payment id.
func (c *QuickPayClient) CreatePayment(ctx context.Context, orderID types.ID, amount float64) (string, error) {
	body := map[string]any{
		"currency": "DKK",
		"order_id": orderID,
		"basket": []basketItem{{
			Qty:      1,
			ItemNo:   orderID,
			ItemName: "EpsilonApi - Levering",
			Price:    amount,
			VATRate:  0.25,
		}},
	}
	var out struct {
		ID json.Number `json:"id"`
	}
	if err := c.post(ctx, "/payments", body, http.StatusCreated, &out); err != nil {
		return "", fmt.Errorf("Error creating payment: %w", err)
	}
	if out.ID.String() == "" {
		return "", fmt.Errorf("Error creating payment: Found no id")
	}
	return out.ID.String(), nil
}

// CreateCardToken tokenises a stored card for a single authorisation.
func (c *QuickPayClient) CreateCardToken(ctx context.Context, cardRef string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.post(ctx, "/cards/"+cardRef+"/tokens", nil, http.StatusCreated, &out); err != nil {
		return "", fmt.Errorf("Error creating card token: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("Error creating card token: Found no token")
	}
	return out.Token, nil
}

// AuthorisePayment authorises the amount (in DKK) against the card token.
// The gateway wants øre.
func (c *QuickPayClient) AuthorisePayment(ctx context.Context, paymentID, cardToken string, amount float64) error {
	body := map[string]any{
		"amount": int64(math.Round(amount * 100)),
		"card":   map[string]string{"token": cardToken},
	}
	var out struct {
		TestMode bool `json:"test_mode"`
		Accepted bool `json:"accepted"`
	}
	if err := c.post(ctx, "/payments/"+paymentID+"/authorize", body, http.StatusAccepted, &out); err != nil {
		return fmt.Errorf("Error authorising payment: %w", err)
	}
	if !c.testMode && out.TestMode {
		return fmt.Errorf("Error authorising payment: Required test mode")
	}
	if !c.testMode && !out.Accepted {
		return fmt.Errorf("Error authorising payment: Was not accepted")
	}
	return nil
}

// UploadCreditCard creates and authorises a card at the gateway, returning
// the reference stored on the user record.
func (c *QuickPayClient) UploadCreditCard(ctx context.Context, card CreditCard) (string, error) {
	var created struct {
		ID json.Number `json:"id"`
	}
	if err := c.post(ctx, "/cards", nil, http.StatusCreated, &created); err != nil {
		return "", fmt.Errorf("Error creating card: %w", err)
	}
	if created.ID.String() == "" {
		return "", fmt.Errorf("Error creating card: Found no id")
	}
	cardRef := created.ID.String()

	body := map[string]any{
		"card": map[string]string{
			"number":     card.Number,
			"expiration": card.Year + card.Month,
			"cvd":        card.CVC,
		},
	}
	var authorised struct {
		TestMode bool `json:"test_mode"`
		Accepted bool `json:"accepted"`
	}
	if err := c.post(ctx, "/cards/"+cardRef+"/authorize", body, http.StatusAccepted, &authorised); err != nil {
		return "", fmt.Errorf("Error authorising card: %w", err)
	}
	if !c.testMode && authorised.TestMode {
		return "", fmt.Errorf("Error authorising card: Required test mode")
	}
	if !c.testMode && !authorised.Accepted {
		return "", fmt.Errorf("Error authorising card: Was not accepted")
	}
	return cardRef, nil
}

// LoadCreditCard returns the last four digits of a stored card.
func (c *QuickPayClient) LoadCreditCard(ctx context.Context, cardRef string) (string, error) {
	var out struct {
		Metadata struct {
			Last4 string `json:"last4"`
		} `json:"metadata"`
	}
	if err := c.get(ctx, "/cards/"+cardRef, &out); err != nil {
		return "", fmt.Errorf("Error loading credit card: %w", err)
	}
	return out.Metadata.Last4, nil
}

func (c *QuickPayClient) post(ctx context.Context, relative string, body any, wantStatus int, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+relative, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, wantStatus, out)
}

func (c *QuickPayClient) get(ctx context.Context, relative string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+relative, nil)
	if err != nil {
		return err
	}
	return c.do(req, http.StatusOK, out)
}

func (c *QuickPayClient) do(req *http.Request, wantStatus int, out any) error {
	req.Header.Set("Accept-Version", c.version)
	req.Header.Set("Authorization", "Basic "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return fmt.Errorf("Expected status %d but was %d", wantStatus, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
