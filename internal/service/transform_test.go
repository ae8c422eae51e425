package service

import (
	"context"
	"testing"
	"time"

	"github.com/bigkaa/mediastore/sync-module/internal/domain/model"
)

// TestTransform_SparseDraft проверяет частичность черновика:
// незаполненные поля источника не попадают в черновик.
func TestTransform_SparseDraft(t *testing.T) {
	stack := newTestStack(t)
	providerID := stack.dam.seedListItem("content_provider", "provider-a", map[string]string{"en": "Provider A"})

	asset := &model.Asset{
		TransactionID: "LPT-1",
		Provider:      "provider-a",
		Name:          map[string]string{"en": "Mountain photo"},
		LastUpdatedAt: time.Now(),
	}

	meta, err := stack.transformer.Transform(context.Background(), asset, false)
	if err != nil {
		t.Fatalf("Ошибка Transform: %v", err)
	}

	if meta["provider"] != providerID {
		t.Errorf("provider = %v, ожидается %s", meta["provider"], providerID)
	}
	if meta["name_en"] != "Mountain photo" {
		t.Errorf("name_en = %v, ожидается Mountain photo", meta["name_en"])
	}

	// Незаполненные поля отсутствуют, а не пустые
	for _, field := range []string{"description_en", "category", "project", "collection", "asset_url", "license_text"} {
		if _, ok := meta[field]; ok {
			t.Errorf("незаполненное поле %s попало в черновик", field)
		}
	}

	// Черновик обновления не содержит идентификаторов источника
	if _, ok := meta["lc_transaction_id"]; ok {
		t.Error("черновик обновления не должен содержать lc_transaction_id")
	}

	// Флаг отмены присутствует всегда
	if cancelled, ok := meta["cancelled"]; !ok || cancelled != false {
		t.Errorf("cancelled = %v, ожидается false", cancelled)
	}
}

// TestTransform_CreateDraftHasSourceIDs проверяет, что черновик создания
// содержит идентификаторы источника.
func TestTransform_CreateDraftHasSourceIDs(t *testing.T) {
	stack := newTestStack(t)

	asset := &model.Asset{
		TransactionID: "LPT-2",
		BinaryID:      "bin-2",
		BinaryVersion: 3,
		LastUpdatedAt: time.Now(),
	}

	meta, err := stack.transformer.Transform(context.Background(), asset, true)
	if err != nil {
		t.Fatalf("Ошибка Transform: %v", err)
	}

	if meta["lc_transaction_id"] != "LPT-2" {
		t.Errorf("lc_transaction_id = %v, ожидается LPT-2", meta["lc_transaction_id"])
	}
	if meta["lc_binary_id"] != "bin-2" {
		t.Errorf("lc_binary_id = %v, ожидается bin-2", meta["lc_binary_id"])
	}
	if meta["lc_binary_version"] != 3 {
		t.Errorf("lc_binary_version = %v, ожидается 3", meta["lc_binary_version"])
	}
}

// TestTransform_KeywordsJoined проверяет склейку ключевых слов через ", ".
func TestTransform_KeywordsJoined(t *testing.T) {
	stack := newTestStack(t)

	asset := &model.Asset{
		TransactionID: "LPT-3",
		Keywords: map[string][]string{
			"en": {"mountain", "snow", "alps"},
			"de": {"berg"},
		},
		LastUpdatedAt: time.Now(),
	}

	meta, err := stack.transformer.Transform(context.Background(), asset, false)
	if err != nil {
		t.Fatalf("Ошибка Transform: %v", err)
	}

	if meta["keywords_en"] != "mountain, snow, alps" {
		t.Errorf("keywords_en = %v, ожидается %q", meta["keywords_en"], "mountain, snow, alps")
	}
	if meta["keywords_de"] != "berg" {
		t.Errorf("keywords_de = %v, ожидается berg", meta["keywords_de"])
	}
}

// TestTransform_UsageConstraints проверяет резолв словарных списков
// ограничений использования.
func TestTransform_UsageConstraints(t *testing.T) {
	stack := newTestStack(t)

	webID := stack.dam.seedListItem("usage", "web", map[string]string{"en": "Web"})
	printID := stack.dam.seedListItem("usage", "print", map[string]string{"en": "Print"})
	wwID := stack.dam.seedListItem("geography", "worldwide", map[string]string{"en": "Worldwide"})

	validUntil := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	asset := &model.Asset{
		TransactionID: "LPT-4",
		License: model.License{
			UsageConstraints: []model.UsageConstraint{
				{
					AllowedUsages:      []string{"web", "print"},
					AllowedGeographies: []string{"worldwide"},
					ValidFrom:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
					ValidUntil:         &validUntil,
					EditorialUse:       true,
				},
			},
		},
		LastUpdatedAt: time.Now(),
	}

	meta, err := stack.transformer.Transform(context.Background(), asset, false)
	if err != nil {
		t.Fatalf("Ошибка Transform: %v", err)
	}

	constraints, ok := meta["usage_constraints"].([]map[string]any)
	if !ok || len(constraints) != 1 {
		t.Fatalf("usage_constraints = %v, ожидается список из одного элемента", meta["usage_constraints"])
	}

	c := constraints[0]
	usages, ok := c["allowed_usages"].([]string)
	if !ok || len(usages) != 2 || usages[0] != webID || usages[1] != printID {
		t.Errorf("allowed_usages = %v, ожидается [%s %s] (порядок источника)", c["allowed_usages"], webID, printID)
	}
	geos, ok := c["allowed_geographies"].([]string)
	if !ok || len(geos) != 1 || geos[0] != wwID {
		t.Errorf("allowed_geographies = %v, ожидается [%s]", c["allowed_geographies"], wwID)
	}
	if c["valid_until"] != "2027-01-01T00:00:00Z" {
		t.Errorf("valid_until = %v, ожидается 2027-01-01T00:00:00Z", c["valid_until"])
	}
	if c["editorial_use"] != true {
		t.Errorf("editorial_use = %v, ожидается true", c["editorial_use"])
	}
}

// TestTransform_UnresolvedReferenceOmitted проверяет, что нерезолвящийся
// словарный ключ не попадает в черновик и не роняет трансформацию:
// потоки словарей и ассетов могут быть временно рассогласованы.
func TestTransform_UnresolvedReferenceOmitted(t *testing.T) {
	stack := newTestStack(t)

	asset := &model.Asset{
		TransactionID: "LPT-5",
		Provider:      "ghost-provider",
		Name:          map[string]string{"en": "Orphan"},
		LastUpdatedAt: time.Now(),
	}

	meta, err := stack.transformer.Transform(context.Background(), asset, false)
	if err != nil {
		t.Fatalf("Ошибка Transform: %v", err)
	}
	if _, ok := meta["provider"]; ok {
		t.Errorf("нерезолвящийся provider попал в черновик: %v", meta["provider"])
	}
	if meta["name_en"] != "Orphan" {
		t.Errorf("name_en = %v, остальные поля должны сохраниться", meta["name_en"])
	}
}

// TestResolver_CachesKind проверяет, что вид словаря загружается из DAM
// один раз, а Purge сбрасывает кэш.
func TestResolver_CachesKind(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	stack.dam.seedListItem("usage", "web", map[string]string{"en": "Web"})

	if id, err := stack.resolver.ResolveKey(ctx, "usage", "web"); err != nil || id == "" {
		t.Fatalf("ResolveKey(web) = %q, %v, ожидался непустой ID", id, err)
	}

	// Добавляем элемент напрямую в DAM: кэш его не видит
	printID := stack.dam.seedListItem("usage", "print", map[string]string{"en": "Print"})
	if id, _ := stack.resolver.ResolveKey(ctx, "usage", "print"); id != "" {
		t.Errorf("кэш должен скрывать элемент, добавленный после загрузки вида, получен %q", id)
	}

	// После Purge элемент виден
	stack.resolver.Purge()
	if id, err := stack.resolver.ResolveKey(ctx, "usage", "print"); err != nil || id != printID {
		t.Errorf("после Purge ResolveKey(print) = %q, %v, ожидается %s", id, err, printID)
	}
}

// TestResolver_PreservesKeyOrder проверяет сохранение порядка ключей.
func TestResolver_PreservesKeyOrder(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	aID := stack.dam.seedListItem("language", "de", map[string]string{"en": "German"})
	bID := stack.dam.seedListItem("language", "en", map[string]string{"en": "English"})

	ids, err := stack.resolver.ResolveKeys(ctx, "language", []string{"en", "de"})
	if err != nil {
		t.Fatalf("Ошибка ResolveKeys: %v", err)
	}
	if len(ids) != 2 || ids[0] != bID || ids[1] != aID {
		t.Errorf("ids = %v, ожидается [%s %s]", ids, bID, aID)
	}
}
