// asset.go — доменная модель лицензированного ассета License Catalog.
// Ассет идентифицируется transaction ID покупки и после покупки неизменен,
// кроме метаданных лицензии. Поле LastUpdatedAt служит курсором
// инкрементальной синхронизации.
package model

import "time"

// Asset — лицензированный ассет LC.
type Asset struct {
	// TransactionID — стабильный идентификатор покупки (upsert-ключ в DAM).
	TransactionID string
	// Provider — ключ поставщика контента (словарь content_provider).
	Provider string
	// Category — ключ категории контента (словарь content_category).
	Category string

	// Name — локализованное название (locale → строка).
	Name map[string]string
	// Description — локализованное описание.
	Description map[string]string
	// Keywords — локализованные ключевые слова (locale → список).
	Keywords map[string][]string

	// Project — связка с проектом/коллекцией заказчика.
	Project string
	// Collection — имя коллекции в LC.
	Collection string
	// AssetURL — ссылка на страницу ассета в LC.
	AssetURL string
	// PreviewURL — ссылка на превью.
	PreviewURL string

	// License — блок лицензии.
	License License

	// BinaryID — UUID бинарника в LC.
	BinaryID string
	// BinaryVersion — версия бинарника; рост версии означает замену файла.
	BinaryVersion int

	// CompoundParts — упорядоченный список частей составного ассета.
	// Пустой список — обычный (одиночный) ассет.
	CompoundParts []CompoundPart

	// Cancelled — покупка аннулирована (в DAM хранится как флаг, запись не удаляется).
	Cancelled bool

	// PurchasedAt — время покупки.
	PurchasedAt time.Time
	// LastUpdatedAt — время последнего изменения; монотонно не убывает
	// в потоке синхронизации и служит значением курсора.
	LastUpdatedAt time.Time
}

// IsCompound сообщает, является ли ассет составным.
func (a *Asset) IsCompound() bool {
	return len(a.CompoundParts) > 0
}

// License — лицензионные метаданные ассета.
type License struct {
	// Licensee — лицензиат.
	Licensee string
	// Type — ключ типа лицензии (словарь license_type).
	Type string
	// Text — общий текст лицензии.
	Text string
	// OptionTexts — текст лицензии по опциям (option → текст).
	OptionTexts map[string]string
	// TextURLs — ссылки на тексты лицензии по локалям (locale → список URL).
	TextURLs map[string][]string
	// UsageConstraints — упорядоченный список ограничений использования.
	// Ограничения независимы и не объединяются движком.
	UsageConstraints []UsageConstraint
	// DownloadConstraint — ограничение на скачивание.
	DownloadConstraint *DownloadConstraint
	// ReleaseDetails — сведения о релизах (model/property release).
	ReleaseDetails *ReleaseDetails
}

// UsageConstraint — датированный набор ограничений использования.
// Все списки содержат ключи соответствующих словарей.
type UsageConstraint struct {
	AllowedUsages         []string
	RestrictedUsages      []string
	AllowedSizes          []string
	AllowedPlacements     []string
	AllowedDistributions  []string
	AllowedGeographies    []string
	RestrictedGeographies []string
	AllowedVerticals      []string
	AllowedLanguages      []string
	UsageLimit            string

	// ValidFrom — начало действия ограничения.
	ValidFrom time.Time
	// ValidUntil — конец действия (nil — бессрочно).
	ValidUntil *time.Time
	// ToBeUsedUntil — срок, до которого материал должен быть использован.
	ToBeUsedUntil *time.Time
	// EditorialUse — только редакционное использование.
	EditorialUse bool
}

// DownloadConstraint — ограничение на скачивание бинарника.
type DownloadConstraint struct {
	// MaxDownloads — максимум скачиваний (0 — без ограничения).
	MaxDownloads int
	// DownloadUntil — срок доступности скачивания.
	DownloadUntil *time.Time
}

// ReleaseDetails — сведения о model/property release.
type ReleaseDetails struct {
	// State — ключ состояния релиза (словарь release_state).
	State string
	// Note — комментарий.
	Note string
}

// CompoundPart — ссылка на часть составного ассета.
// Подпись использования хранится на связи, не на самой части.
type CompoundPart struct {
	// TransactionID — transaction ID части (часть — самостоятельный ассет).
	TransactionID string
	// Usage — подпись использования части в составе родителя.
	Usage string
}
