// Package productsearch реализует клиент Walmart affiliate search API.
// Запросы подписываются RSA-SHA256 по схеме WM_SEC; выбор лучшего
// кандидата из выдачи выполняется детерминированно и отделён от
// транспорта, чтобы политику можно было проверять без сети.
package productsearch

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/buildyoursmartcart/smartcart/internal/models"
)

// ErrUnavailable — поисковый сервис недоступен или отверг подпись.
var ErrUnavailable = errors.New("product search unavailable")

const searchPath = "/api-proxy/service/affil/product/v2/search"

// Client — клиент поиска товаров.
type Client struct {
	baseURL    string
	consumerID string
	keyVersion string
	privateKey *rsa.PrivateKey
	httpClient *http.Client
}

// New создаёт клиент поиска товаров. privateKeyPEM — закрытый ключ
// партнёрского аккаунта в формате PKCS#8 PEM.
func New(baseURL, consumerID, keyVersion, privateKeyPEM string, timeout time.Duration) (*Client, error) {
	const op = "productsearch.New"

	block, _ := pem.Decode([]byte(privateKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("%s: private key is not valid PEM", op)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rsaKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%s: private key is not RSA", op)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		consumerID: consumerID,
		keyVersion: keyVersion,
		privateKey: rsaKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Search запрашивает товары по канонической поисковой фразе.
// Пустая выдача — нормальный результат, не ошибка.
func (c *Client) Search(ctx context.Context, query string) ([]models.Product, error) {
	const op = "productsearch.Search"

	params := url.Values{}
	params.Set("query", query)
	params.Set("numItems", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+searchPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := c.signRequest(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%s: %w: unexpected status %s", op, ErrUnavailable, resp.Status)
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	products := make([]models.Product, 0, len(searchResp.Items))
	for _, item := range searchResp.Items {
		price := item.SalePrice
		if price == 0 {
			price = item.MSRP
		}
		products = append(products, models.Product{
			ExternalID: strconv.FormatInt(item.ItemID, 10),
			Name:       item.Name,
			Price:      price,
		})
	}
	return products, nil
}

// signRequest добавляет заголовки подписи WM_SEC. Подписывается строка
// consumerID\ntimestamp\nkeyVersion\n.
func (c *Client) signRequest(req *http.Request) error {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	payload := c.consumerID + "\n" + timestamp + "\n" + c.keyVersion + "\n"

	digest := sha256.Sum256([]byte(payload))
	signature, err := rsa.SignPKCS1v15(rand.Reader, c.privateKey, crypto.SHA256, digest[:])
	if err != nil {
		return err
	}

	req.Header.Set("WM_CONSUMER.ID", c.consumerID)
	req.Header.Set("WM_CONSUMER.INTIMESTAMP", timestamp)
	req.Header.Set("WM_SEC.KEY_VERSION", c.keyVersion)
	req.Header.Set("WM_SEC.AUTH_SIGNATURE", base64.StdEncoding.EncodeToString(signature))
	req.Header.Set("Accept", "application/json")
	return nil
}

// SelectBest выбирает лучший товар из выдачи: сперва кандидаты, чьё
// название содержит поисковую фразу, среди них — самый дешёвый;
// если таких нет — самый дешёвый из всей выдачи. Пустая выдача даёт
// Match{Found: false}.
func SelectBest(query string, products []models.Product) models.Match {
	if len(products) == 0 {
		return models.Match{Found: false}
	}

	query = strings.ToLower(strings.TrimSpace(query))
	best := -1
	bestContains := false
	for i, p := range products {
		contains := strings.Contains(strings.ToLower(p.Name), query)
		switch {
		case best == -1:
			best, bestContains = i, contains
		case contains && !bestContains:
			best, bestContains = i, true
		case contains == bestContains && p.Price < products[best].Price:
			best = i
		}
	}

	product := products[best]
	return models.Match{Found: true, Product: &product}
}
