package cbr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Dan9191/finance-tracker/internal/config"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/charmap"
)

// baseCode is the currency every CBR rate is quoted in
const baseCode = "RUB"

// CBRClient fetches official daily exchange rates from the Central Bank of Russia
type CBRClient struct {
	url    string
	client *http.Client
	log    *logrus.Logger
	ttl    time.Duration

	mu        sync.Mutex
	rates     map[string]decimal.Decimal
	fetchedAt time.Time
}

// NewCBRClient initializes a new CBR client
func NewCBRClient(cfg *config.Config, log *logrus.Logger) *CBRClient {
	return &CBRClient{
		url: cfg.CBRURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
		ttl: time.Hour,
	}
}

// sendRequest downloads the daily rates document
func (c *CBRClient) sendRequest(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debugf("CBR XML response: %d bytes", len(body))
	return body, nil
}

// charsetReader decodes the windows-1251 documents CBR serves
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "windows-1251", "cp1251":
		return charmap.Windows1251.NewDecoder().Reader(input), nil
	case "utf-8", "":
		return input, nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
}

// parseDecimal reads CBR numbers, which use a decimal comma
func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
}

// parseXMLResponse extracts rubles per one unit of each listed currency
func parseXMLResponse(rawBody []byte) (map[string]decimal.Decimal, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	valutes := doc.FindElements("//ValCurs/Valute")
	if len(valutes) == 0 {
		return nil, fmt.Errorf("no currency data found in XML")
	}

	rates := map[string]decimal.Decimal{baseCode: decimal.NewFromInt(1)}
	for _, v := range valutes {
		code := v.FindElement("./CharCode")
		value := v.FindElement("./Value")
		if code == nil || value == nil {
			continue
		}
		rate, err := parseDecimal(value.Text())
		if err != nil {
			return nil, fmt.Errorf("failed to parse rate for %s: %w", code.Text(), err)
		}
		nominal := decimal.NewFromInt(1)
		if el := v.FindElement("./Nominal"); el != nil {
			if nominal, err = parseDecimal(el.Text()); err != nil || !nominal.IsPositive() {
				return nil, fmt.Errorf("invalid nominal for %s: %q", code.Text(), el.Text())
			}
		}
		rates[strings.ToUpper(strings.TrimSpace(code.Text()))] = rate.Div(nominal)
	}
	return rates, nil
}

// refresh returns the cached rate table, downloading it again once stale
func (c *CBRClient) refresh(ctx context.Context) (map[string]decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rates != nil && time.Since(c.fetchedAt) < c.ttl {
		return c.rates, nil
	}

	body, err := c.sendRequest(ctx)
	if err != nil {
		return nil, err
	}
	rates, err := parseXMLResponse(body)
	if err != nil {
		return nil, err
	}

	c.rates = rates
	c.fetchedAt = time.Now()
	c.log.Infof("Retrieved %d exchange rates from CBR", len(rates))
	return rates, nil
}

// Rate returns how many rubles one unit of currency is worth
func (c *CBRClient) Rate(ctx context.Context, currency string) (decimal.Decimal, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == baseCode {
		return decimal.NewFromInt(1), nil
	}

	rates, err := c.refresh(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	rate, ok := rates[currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", models.ErrUnknownCurrency, currency)
	}
	return rate, nil
}
