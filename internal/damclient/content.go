// content.go — операции с записями контента DAM.
package damclient

import (
	"context"
	"fmt"
	"net/url"

	"github.com/bigkaa/mediastore/sync-module/internal/remote"
)

// Поля метаданных, по которым sync-module ищет контент.
const (
	FieldTransactionID = "lc_transaction_id"
	FieldBinaryID      = "lc_binary_id"
)

// SearchContentByField ищет контент по точному значению поля метаданных.
// Ноль результатов — (nil, nil). Больше одного результата — семантическая
// ошибка: инвариант «не больше одной записи на транзакцию» нарушен на
// стороне DAM и требует ручного вмешательства.
func (c *Client) SearchContentByField(ctx context.Context, field, value string) (*Content, error) {
	q := url.Values{}
	q.Set("field", field)
	q.Set("value", value)
	path := "/api/v1/content/search?" + q.Encode()

	var resp contentSearchResponse
	err := remoteDo(ctx, c, "dam_search_content", func() error {
		resp = contentSearchResponse{}
		if err := c.doJSON(ctx, "GET", path, nil, &resp); err != nil {
			return err
		}
		if len(resp.Items) > 1 {
			return remote.Semantic(system, fmt.Sprintf(
				"поиск %s=%s вернул %d записей, ожидалось не больше одной",
				field, value, len(resp.Items)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	return &resp.Items[0], nil
}

// SearchContentByTransactionID ищет контент по ID транзакции LC.
func (c *Client) SearchContentByTransactionID(ctx context.Context, transactionID string) (*Content, error) {
	return c.SearchContentByField(ctx, FieldTransactionID, transactionID)
}

// SearchContentByBinaryID ищет контент по ID бинарника LC.
func (c *Client) SearchContentByBinaryID(ctx context.Context, binaryID string) (*Content, error) {
	return c.SearchContentByField(ctx, FieldBinaryID, binaryID)
}

// CreateContent создаёт запись контента без бинарника (например, составной
// ассет). parts задаёт упорядоченные связи с частями.
func (c *Client) CreateContent(ctx context.Context, metadata Metadata, parts []PartRelation) (*Content, error) {
	req := createContentRequest{Metadata: metadata, Parts: parts}

	var content Content
	err := remoteDo(ctx, c, "dam_create_content", func() error {
		return c.doJSON(ctx, "POST", "/api/v1/content", req, &content)
	})
	if err != nil {
		return nil, err
	}
	return &content, nil
}

// UpdateContentMetadata частично обновляет метаданные контента.
// Отсутствующие в metadata ключи DAM не трогает.
func (c *Client) UpdateContentMetadata(ctx context.Context, contentID string, metadata Metadata) error {
	req := updateMetadataRequest{Metadata: metadata}
	return remoteDo(ctx, c, "dam_update_metadata", func() error {
		return c.doJSON(ctx, "PATCH", "/api/v1/content/"+url.PathEscape(contentID)+"/metadata", req, nil)
	})
}

// UpdateContentFile заменяет бинарник контента из завершённого transfer.
func (c *Client) UpdateContentFile(ctx context.Context, contentID, transferID, fileName string) error {
	req := updateContentFileRequest{TransferID: transferID, FileName: fileName}
	return remoteDo(ctx, c, "dam_update_content_file", func() error {
		return c.doJSON(ctx, "PUT", "/api/v1/content/"+url.PathEscape(contentID)+"/file", req, nil)
	})
}

// UpdateContentParts заменяет связи составного контента с частями.
func (c *Client) UpdateContentParts(ctx context.Context, contentID string, parts []PartRelation) error {
	req := updatePartsRequest{Parts: parts}
	return remoteDo(ctx, c, "dam_update_parts", func() error {
		return c.doJSON(ctx, "PUT", "/api/v1/content/"+url.PathEscape(contentID)+"/parts", req, nil)
	})
}
