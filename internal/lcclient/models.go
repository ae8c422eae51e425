// models.go — DTO ответов License Catalog API.
// Временные поля передаются строками (ISO 8601 / RFC 3339) и парсятся
// при конвертации в доменную модель.
package lcclient

// VocabularyElement — элемент словаря (ответ GET /api/v1/vocabulary).
type VocabularyElement struct {
	Key    string            `json:"key"`
	Labels map[string]string `json:"labels"`
}

// VocabularyResponse — все словари одним снапшотом: вид → элементы.
type VocabularyResponse struct {
	Vocabularies map[string][]VocabularyElement `json:"vocabularies"`
}

// AssetsPage — страница ассетов (ответ GET /api/v1/assets).
// Пустой список Assets означает «источник исчерпан».
type AssetsPage struct {
	Assets     []Asset `json:"assets"`
	NextCursor string  `json:"nextCursor,omitempty"`
}

// Asset — лицензированный ассет LC.
type Asset struct {
	TransactionID string              `json:"transactionId"`
	Provider      string              `json:"provider,omitempty"`
	Category      string              `json:"category,omitempty"`
	Name          map[string]string   `json:"name,omitempty"`
	Description   map[string]string   `json:"description,omitempty"`
	Keywords      map[string][]string `json:"keywords,omitempty"`
	Project       string              `json:"project,omitempty"`
	Collection    string              `json:"collection,omitempty"`
	AssetURL      string              `json:"assetUrl,omitempty"`
	PreviewURL    string              `json:"previewUrl,omitempty"`
	License       License             `json:"license"`
	BinaryID      string              `json:"binaryId,omitempty"`
	BinaryVersion int                 `json:"binaryVersion,omitempty"`
	CompoundParts []CompoundPart      `json:"compoundParts,omitempty"`
	Cancelled     bool                `json:"cancelled,omitempty"`
	PurchasedAt   string              `json:"purchasedAt,omitempty"`
	LastUpdatedAt string              `json:"lastUpdatedAt"`
}

// License — лицензионный блок ассета.
type License struct {
	Licensee           string              `json:"licensee,omitempty"`
	Type               string              `json:"type,omitempty"`
	Text               string              `json:"text,omitempty"`
	OptionTexts        map[string]string   `json:"optionTexts,omitempty"`
	TextURLs           map[string][]string `json:"textUrls,omitempty"`
	UsageConstraints   []UsageConstraint   `json:"usageConstraints,omitempty"`
	DownloadConstraint *DownloadConstraint `json:"downloadConstraint,omitempty"`
	ReleaseDetails     *ReleaseDetails     `json:"releaseDetails,omitempty"`
}

// UsageConstraint — датированный набор ограничений использования.
type UsageConstraint struct {
	AllowedUsages         []string `json:"allowedUsages,omitempty"`
	RestrictedUsages      []string `json:"restrictedUsages,omitempty"`
	AllowedSizes          []string `json:"allowedSizes,omitempty"`
	AllowedPlacements     []string `json:"allowedPlacements,omitempty"`
	AllowedDistributions  []string `json:"allowedDistributions,omitempty"`
	AllowedGeographies    []string `json:"allowedGeographies,omitempty"`
	RestrictedGeographies []string `json:"restrictedGeographies,omitempty"`
	AllowedVerticals      []string `json:"allowedVerticals,omitempty"`
	AllowedLanguages      []string `json:"allowedLanguages,omitempty"`
	UsageLimit            string   `json:"usageLimit,omitempty"`
	ValidFrom             string   `json:"validFrom"`
	ValidUntil            *string  `json:"validUntil,omitempty"`
	ToBeUsedUntil         *string  `json:"toBeUsedUntil,omitempty"`
	EditorialUse          bool     `json:"editorialUse,omitempty"`
}

// DownloadConstraint — ограничение на скачивание бинарника.
type DownloadConstraint struct {
	MaxDownloads  int     `json:"maxDownloads,omitempty"`
	DownloadUntil *string `json:"downloadUntil,omitempty"`
}

// ReleaseDetails — сведения о model/property release.
type ReleaseDetails struct {
	State string `json:"state,omitempty"`
	Note  string `json:"note,omitempty"`
}

// CompoundPart — ссылка на часть составного ассета.
type CompoundPart struct {
	TransactionID string `json:"transactionId"`
	Usage         string `json:"usage,omitempty"`
}

// DownloadLocation — адрес скачивания бинарника
// (ответ GET /api/v1/assets/{id}/downloads).
type DownloadLocation struct {
	FileID              string `json:"fileId"`
	URL                 string `json:"url"`
	RecommendedFileName string `json:"recommendedFileName"`
	Usage               string `json:"usage,omitempty"`
}

// downloadsResponse — обёртка ответа списка загрузок.
type downloadsResponse struct {
	Downloads []DownloadLocation `json:"downloads"`
}
