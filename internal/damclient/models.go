// models.go — DTO запросов и ответов Mediastore DAM API.
package damclient

// Metadata — черновик метаданных контента.
// Отсутствующий ключ не трогает поле в DAM; передача значения перезаписывает;
// пустая строка или пустой список очищает поле.
type Metadata map[string]any

// ListItem — элемент справочника DAM (словарная запись).
type ListItem struct {
	ID     string            `json:"id"`
	Kind   string            `json:"kind"`
	Key    string            `json:"key"`
	Labels map[string]string `json:"labels"`
}

// listItemsResponse — ответ на поиск элементов справочника.
type listItemsResponse struct {
	Items []ListItem `json:"items"`
}

// createListItemRequest — запрос создания элемента справочника.
type createListItemRequest struct {
	Kind   string            `json:"kind"`
	Key    string            `json:"key"`
	Labels map[string]string `json:"labels"`
}

// updateListItemRequest — запрос обновления подписей элемента.
type updateListItemRequest struct {
	Labels map[string]string `json:"labels"`
}

// Content — запись контента DAM.
type Content struct {
	ID       string   `json:"id"`
	Metadata Metadata `json:"metadata"`
}

// contentSearchResponse — ответ поиска контента.
type contentSearchResponse struct {
	Items []Content `json:"items"`
}

// PartRelation — связь составного контента с частью.
// Position задаёт порядок частей.
type PartRelation struct {
	ContentID string `json:"contentId"`
	Usage     string `json:"usage,omitempty"`
	Position  int    `json:"position"`
}

// createContentRequest — запрос создания контента.
type createContentRequest struct {
	Metadata Metadata       `json:"metadata"`
	Parts    []PartRelation `json:"parts,omitempty"`
}

// updateMetadataRequest — запрос частичного обновления метаданных.
type updateMetadataRequest struct {
	Metadata Metadata `json:"metadata"`
}

// updateContentFileRequest — запрос замены бинарника контента
// из завершённого transfer.
type updateContentFileRequest struct {
	TransferID string `json:"transferId"`
	FileName   string `json:"fileName"`
}

// updatePartsRequest — запрос замены связей составного контента.
type updatePartsRequest struct {
	Parts []PartRelation `json:"parts"`
}

// Статусы transfer.
const (
	TransferStatusPending   = "pending"
	TransferStatusImporting = "importing"
	TransferStatusCompleted = "completed"
	TransferStatusFailed    = "failed"
)

// Transfer — сессия staged-загрузки бинарника.
type Transfer struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	// ContentID заполняется после завершения импорта.
	ContentID string `json:"contentId,omitempty"`
	// Error заполняется при статусе failed.
	Error string `json:"error,omitempty"`
}
