// token.go — кэш access token по OAuth2 Client Credentials flow.
// Токен обновляется за 30 секунд до истечения; InvalidateToken сбрасывает
// кэш, когда удалённая система ответила 401 (retry-драйвер вызывает его
// перед повтором).
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// tokenResponse — ответ token endpoint.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// TokenSource — кэширующий источник access token для одной удалённой системы.
type TokenSource struct {
	system       string
	tokenURL     string
	clientID     string
	clientSecret string

	httpClient *http.Client
	logger     *slog.Logger

	// Кэш токена доступа
	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewTokenSource создаёт источник токенов.
// system — имя удалённой системы для логов и классификации ошибок (lc, dam).
func NewTokenSource(system, tokenURL, clientID, clientSecret string, httpClient *http.Client, logger *slog.Logger) *TokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &TokenSource{
		system:       system,
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
		logger:       logger.With(slog.String("component", system+"_token")),
	}
}

// Token возвращает актуальный access token, обновляя при необходимости.
// Токен обновляется за 30 секунд до истечения.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Проверяем кэш: если токен валиден ещё 30 секунд — используем его
	if s.accessToken != "" && time.Now().Add(30*time.Second).Before(s.tokenExpiry) {
		return s.accessToken, nil
	}

	// Запрашиваем новый токен через Client Credentials flow
	token, err := s.requestToken(ctx)
	if err != nil {
		return "", err
	}

	s.accessToken = token.AccessToken
	s.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)

	s.logger.Debug("Токен обновлён",
		slog.Time("expires_at", s.tokenExpiry),
	)

	return s.accessToken, nil
}

// InvalidateToken сбрасывает кэш токена.
// Следующий вызов Token запросит свежий токен.
func (s *TokenSource) InvalidateToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.tokenExpiry = time.Time{}
}

// requestToken выполняет Client Credentials flow.
func (s *TokenSource) requestToken(ctx context.Context) (*tokenResponse, error) {
	data := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("создание запроса токена: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, FromTransport(s.system, fmt.Errorf("запрос токена: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, FromStatus(s.system, resp.StatusCode, "запрос токена: "+string(body))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("декодирование ответа токена: %w", err)
	}

	return &token, nil
}
