// listitems.go — операции со справочниками DAM (словарными записями).
package damclient

import (
	"context"
	"net/url"
)

// SearchListItems возвращает все элементы справочника указанного вида.
func (c *Client) SearchListItems(ctx context.Context, kind string) ([]ListItem, error) {
	path := "/api/v1/listitems?kind=" + url.QueryEscape(kind)

	var resp listItemsResponse
	err := remoteDo(ctx, c, "dam_search_listitems", func() error {
		return c.doJSON(ctx, "GET", path, nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// CreateListItem создаёт элемент справочника и возвращает его ID.
func (c *Client) CreateListItem(ctx context.Context, kind, key string, labels map[string]string) (*ListItem, error) {
	req := createListItemRequest{Kind: kind, Key: key, Labels: labels}

	var item ListItem
	err := remoteDo(ctx, c, "dam_create_listitem", func() error {
		return c.doJSON(ctx, "POST", "/api/v1/listitems", req, &item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateListItem заменяет подписи элемента справочника.
func (c *Client) UpdateListItem(ctx context.Context, id string, labels map[string]string) error {
	req := updateListItemRequest{Labels: labels}
	return remoteDo(ctx, c, "dam_update_listitem", func() error {
		return c.doJSON(ctx, "PUT", "/api/v1/listitems/"+url.PathEscape(id), req, nil)
	})
}

// DeleteListItem удаляет элемент справочника.
func (c *Client) DeleteListItem(ctx context.Context, id string) error {
	return remoteDo(ctx, c, "dam_delete_listitem", func() error {
		return c.doJSON(ctx, "DELETE", "/api/v1/listitems/"+url.PathEscape(id), nil, nil)
	})
}
