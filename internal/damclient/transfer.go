// transfer.go — staged-загрузка бинарников в DAM.
// Последовательность: CreateTransfer → UploadFile → импорт на стороне DAM
// (WaitForImport опрашивает статус) → привязка к контенту → DeleteTransfer.
package damclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/bigkaa/mediastore/sync-module/internal/remote"
)

// CreateTransfer открывает сессию staged-загрузки.
func (c *Client) CreateTransfer(ctx context.Context) (*Transfer, error) {
	var transfer Transfer
	err := remoteDo(ctx, c, "dam_create_transfer", func() error {
		return c.doJSON(ctx, "POST", "/api/v1/transfers", nil, &transfer)
	})
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

// UploadFile загружает файл в открытую сессию transfer.
// Файл передаётся потоково, без буферизации в памяти.
func (c *Client) UploadFile(ctx context.Context, transferID, fileName, srcPath string) error {
	path := "/api/v1/transfers/" + url.PathEscape(transferID) + "/file?fileName=" + url.QueryEscape(fileName)

	return remoteDo(ctx, c, "dam_upload_file", func() error {
		return c.uploadOnce(ctx, path, srcPath)
	})
}

// uploadOnce — одна попытка загрузки файла.
func (c *Client) uploadOnce(ctx context.Context, path, srcPath string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("открытие файла %s: %w", srcPath, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat файла %s: %w", srcPath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, f)
	if err != nil {
		return fmt.Errorf("создание запроса загрузки: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = stat.Size()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("получение токена DAM: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return remote.FromTransport(system, fmt.Errorf("загрузка файла: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return remote.FromStatus(system, resp.StatusCode, "загрузка файла")
	}

	c.logger.Debug("Файл загружен в transfer",
		slog.String("src", srcPath),
		slog.Int64("bytes", stat.Size()),
	)
	return nil
}

// GetTransfer возвращает текущий статус transfer.
func (c *Client) GetTransfer(ctx context.Context, transferID string) (*Transfer, error) {
	var transfer Transfer
	err := remoteDo(ctx, c, "dam_get_transfer", func() error {
		return c.doJSON(ctx, "GET", "/api/v1/transfers/"+url.PathEscape(transferID), nil, &transfer)
	})
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

// WaitForImport опрашивает статус transfer до завершения импорта.
// Статус failed возвращается семантической ошибкой: повтор той же загрузки
// бессмыслен, нужна новая сессия.
func (c *Client) WaitForImport(ctx context.Context, transferID string, pollInterval time.Duration) (*Transfer, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		transfer, err := c.GetTransfer(ctx, transferID)
		if err != nil {
			return nil, err
		}

		switch transfer.Status {
		case TransferStatusCompleted:
			return transfer, nil
		case TransferStatusFailed:
			return nil, remote.Semantic(system, fmt.Sprintf(
				"импорт transfer %s завершился ошибкой: %s", transferID, transfer.Error))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// DeleteTransfer закрывает сессию и освобождает staged-данные на стороне DAM.
func (c *Client) DeleteTransfer(ctx context.Context, transferID string) error {
	return remoteDo(ctx, c, "dam_delete_transfer", func() error {
		return c.doJSON(ctx, "DELETE", "/api/v1/transfers/"+url.PathEscape(transferID), nil, nil)
	})
}
