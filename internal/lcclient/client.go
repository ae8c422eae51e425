// Пакет lcclient — HTTP-клиент License Catalog (LC).
// Операции: GetVocabulary (GET /api/v1/vocabulary), GetAssetsPage
// (GET /api/v1/assets) с курсорной пагинацией, GetDownloadLocations
// (GET /api/v1/assets/{id}/downloads), DownloadFile (скачивание бинарника
// в staging-каталог). Все вызовы проходят через retry-драйвер remote.Do.
package lcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bigkaa/mediastore/sync-module/internal/remote"
)

const system = "lc"

// Client — HTTP-клиент License Catalog.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *remote.TokenSource
	retry      remote.RetryPolicy
	logger     *slog.Logger
}

// New создаёт LC-клиент.
// tokens — источник access token (Client Credentials flow).
func New(baseURL string, tokens *remote.TokenSource, retry remote.RetryPolicy, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		tokens:     tokens,
		retry:      retry,
		logger:     logger.With(slog.String("component", "lc_client")),
	}
}

// GetVocabulary запрашивает полный снапшот словарей: вид → элементы.
func (c *Client) GetVocabulary(ctx context.Context) (map[string][]VocabularyElement, error) {
	var vocab VocabularyResponse
	err := remote.Do(ctx, c.logger, c.retry, c.tokens, "lc_get_vocabulary", func() error {
		return c.getJSON(ctx, "/api/v1/vocabulary", &vocab)
	})
	if err != nil {
		return nil, err
	}
	return vocab.Vocabularies, nil
}

// GetAssetsPage запрашивает страницу ассетов, изменённых после курсора.
// Пустой cursor означает полную синхронизацию с начала.
// Пустой список Assets в ответе означает «источник исчерпан».
func (c *Client) GetAssetsPage(ctx context.Context, cursor string, limit int) (*AssetsPage, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", limit))
	if cursor != "" {
		q.Set("updatedSince", cursor)
	}

	var page AssetsPage
	err := remote.Do(ctx, c.logger, c.retry, c.tokens, "lc_get_assets_page", func() error {
		return c.getJSON(ctx, "/api/v1/assets?"+q.Encode(), &page)
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetDownloadLocations запрашивает адреса скачивания бинарников ассета.
func (c *Client) GetDownloadLocations(ctx context.Context, transactionID string) ([]DownloadLocation, error) {
	path := "/api/v1/assets/" + url.PathEscape(transactionID) + "/downloads"

	var resp downloadsResponse
	err := remote.Do(ctx, c.logger, c.retry, c.tokens, "lc_get_download_locations", func() error {
		return c.getJSON(ctx, path, &resp)
	})
	if err != nil {
		return nil, err
	}
	return resp.Downloads, nil
}

// DownloadFile скачивает бинарник по адресу из DownloadLocation в destPath.
// Адрес может быть предподписанным URL стороннего хранилища, поэтому
// заголовок Authorization не отправляется. Неполная загрузка удаляется.
func (c *Client) DownloadFile(ctx context.Context, fileURL, destPath string) error {
	return remote.Do(ctx, c.logger, c.retry, c.tokens, "lc_download_file", func() error {
		return c.downloadOnce(ctx, fileURL, destPath)
	})
}

// downloadOnce — одна попытка скачивания.
func (c *Client) downloadOnce(ctx context.Context, fileURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("создание запроса скачивания: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return remote.FromTransport(system, fmt.Errorf("скачивание бинарника: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return remote.FromStatus(system, resp.StatusCode, "скачивание бинарника: "+string(body))
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("создание файла %s: %w", destPath, err)
	}

	written, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(destPath)
		return remote.FromTransport(system, fmt.Errorf("запись бинарника в %s: %w", destPath, err))
	}

	c.logger.Debug("Бинарник скачан",
		slog.String("dest", destPath),
		slog.Int64("bytes", written),
	)
	return nil
}

// getJSON выполняет авторизованный GET и декодирует JSON-ответ в out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("создание запроса %s: %w", path, err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("получение токена LC: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return remote.FromTransport(system, fmt.Errorf("запрос %s: %w", path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return remote.FromStatus(system, resp.StatusCode, path+": "+string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("декодирование ответа %s: %w", path, err)
	}
	return nil
}
