// vocabulary.go — контролируемые словари License Catalog.
// Элементы словарей синхронизируются в list items DAM полным диффом
// (create/update/delete по естественному ключу).
package model

// VocabularyKind — вид контролируемого словаря.
type VocabularyKind string

// Виды словарей, синхронизируемые из License Catalog.
const (
	KindContentProvider VocabularyKind = "content_provider"
	KindContentCategory VocabularyKind = "content_category"
	KindLicenseType     VocabularyKind = "license_type"
	KindReleaseState    VocabularyKind = "release_state"
	KindUsage           VocabularyKind = "usage"
	KindSize            VocabularyKind = "size"
	KindPlacement       VocabularyKind = "placement"
	KindDistribution    VocabularyKind = "distribution"
	KindGeography       VocabularyKind = "geography"
	KindVertical        VocabularyKind = "vertical"
	KindLanguage        VocabularyKind = "language"
	KindUsageLimit      VocabularyKind = "usage_limit"
)

// AllVocabularyKinds — полный список видов словарей в порядке синхронизации.
var AllVocabularyKinds = []VocabularyKind{
	KindContentProvider,
	KindContentCategory,
	KindLicenseType,
	KindReleaseState,
	KindUsage,
	KindSize,
	KindPlacement,
	KindDistribution,
	KindGeography,
	KindVertical,
	KindLanguage,
	KindUsageLimit,
}

// VocabularyElement — элемент словаря LC: стабильный ключ + локализованные подписи.
// Ключ уникален в пределах своего вида, набор подписей может меняться.
type VocabularyElement struct {
	Key    string
	Labels map[string]string // locale → подпись
}
