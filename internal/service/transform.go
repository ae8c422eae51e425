// transform.go — трансформация доменного ассета в черновик метаданных DAM.
//
// Черновик частичный (sparse): ключ попадает в черновик только если
// источник заполнил поле. Отсутствующий ключ не трогает значение в DAM,
// поэтому поля, которыми владеют редакторы DAM, переживают повторные
// синхронизации. Словарные ключи LC заменяются на ID элементов
// справочников через резолвер.
//
// Локализованные поля разворачиваются в плоские ключи с суффиксом
// локали: name → name_en, name_de. Списки ключевых слов и ссылок на
// тексты лицензий склеиваются через ", ".
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bigkaa/mediastore/sync-module/internal/damclient"
	"github.com/bigkaa/mediastore/sync-module/internal/domain/model"
)

// AssetTransformer — построитель черновиков метаданных.
type AssetTransformer struct {
	resolver *ReferenceResolver
	logger   *slog.Logger
}

// NewAssetTransformer создаёт трансформер.
func NewAssetTransformer(resolver *ReferenceResolver, logger *slog.Logger) *AssetTransformer {
	return &AssetTransformer{
		resolver: resolver,
		logger:   logger.With(slog.String("component", "transformer")),
	}
}

// Transform строит черновик метаданных для ассета.
// forCreate — черновик для создания новой записи: дополнительно
// включаются идентификаторы источника (lc_transaction_id, lc_binary_id).
func (t *AssetTransformer) Transform(ctx context.Context, asset *model.Asset, forCreate bool) (damclient.Metadata, error) {
	meta := damclient.Metadata{}

	if forCreate {
		meta[damclient.FieldTransactionID] = asset.TransactionID
		if asset.BinaryID != "" {
			meta[damclient.FieldBinaryID] = asset.BinaryID
		}
	}
	if asset.BinaryVersion > 0 {
		meta["lc_binary_version"] = asset.BinaryVersion
	}

	if err := t.putResolved(ctx, meta, "provider", model.KindContentProvider, asset.Provider); err != nil {
		return nil, fmt.Errorf("резолв провайдера: %w", err)
	}
	if err := t.putResolved(ctx, meta, "category", model.KindContentCategory, asset.Category); err != nil {
		return nil, fmt.Errorf("резолв категории: %w", err)
	}

	putLocalized(meta, "name", asset.Name)
	putLocalized(meta, "description", asset.Description)
	for locale, words := range asset.Keywords {
		if len(words) > 0 {
			meta["keywords_"+locale] = strings.Join(words, ", ")
		}
	}

	if asset.Project != "" {
		meta["project"] = asset.Project
	}
	if asset.Collection != "" {
		meta["collection"] = asset.Collection
	}
	if asset.AssetURL != "" {
		meta["asset_url"] = asset.AssetURL
	}
	if asset.PreviewURL != "" {
		meta["preview_url"] = asset.PreviewURL
	}

	if !asset.PurchasedAt.IsZero() {
		meta["purchased_at"] = asset.PurchasedAt.UTC().Format(time.RFC3339)
	}

	// Отмена лицензии всегда попадает в черновик: сброс флага в false
	// так же значим, как установка.
	meta["cancelled"] = asset.Cancelled

	if err := t.transformLicense(ctx, &asset.License, meta); err != nil {
		return nil, err
	}

	return meta, nil
}

// transformLicense добавляет лицензионные поля в черновик.
func (t *AssetTransformer) transformLicense(ctx context.Context, l *model.License, meta damclient.Metadata) error {
	if l.Licensee != "" {
		meta["licensee"] = l.Licensee
	}
	if err := t.putResolved(ctx, meta, "license_type", model.KindLicenseType, l.Type); err != nil {
		return fmt.Errorf("резолв типа лицензии: %w", err)
	}
	if l.Text != "" {
		meta["license_text"] = l.Text
	}
	putLocalized(meta, "license_option_text", l.OptionTexts)
	for locale, urls := range l.TextURLs {
		if len(urls) > 0 {
			meta["license_text_urls_"+locale] = strings.Join(urls, ", ")
		}
	}

	if len(l.UsageConstraints) > 0 {
		constraints := make([]map[string]any, 0, len(l.UsageConstraints))
		for i := range l.UsageConstraints {
			c, err := t.transformUsageConstraint(ctx, &l.UsageConstraints[i])
			if err != nil {
				return err
			}
			constraints = append(constraints, c)
		}
		meta["usage_constraints"] = constraints
	}

	if dc := l.DownloadConstraint; dc != nil {
		if dc.MaxDownloads > 0 {
			meta["max_downloads"] = dc.MaxDownloads
		}
		if dc.DownloadUntil != nil {
			meta["download_until"] = dc.DownloadUntil.UTC().Format(time.RFC3339)
		}
	}

	if rd := l.ReleaseDetails; rd != nil {
		if err := t.putResolved(ctx, meta, "release_state", model.KindReleaseState, rd.State); err != nil {
			return fmt.Errorf("резолв release state: %w", err)
		}
		if rd.Note != "" {
			meta["release_note"] = rd.Note
		}
	}

	return nil
}

// transformUsageConstraint резолвит словарные списки одного ограничения.
func (t *AssetTransformer) transformUsageConstraint(ctx context.Context, uc *model.UsageConstraint) (map[string]any, error) {
	c := map[string]any{
		"valid_from":    uc.ValidFrom.UTC().Format(time.RFC3339),
		"editorial_use": uc.EditorialUse,
	}
	if uc.ValidUntil != nil {
		c["valid_until"] = uc.ValidUntil.UTC().Format(time.RFC3339)
	}
	if uc.ToBeUsedUntil != nil {
		c["to_be_used_until"] = uc.ToBeUsedUntil.UTC().Format(time.RFC3339)
	}

	lists := []struct {
		field string
		kind  model.VocabularyKind
		keys  []string
	}{
		{"allowed_usages", model.KindUsage, uc.AllowedUsages},
		{"restricted_usages", model.KindUsage, uc.RestrictedUsages},
		{"allowed_sizes", model.KindSize, uc.AllowedSizes},
		{"allowed_placements", model.KindPlacement, uc.AllowedPlacements},
		{"allowed_distributions", model.KindDistribution, uc.AllowedDistributions},
		{"allowed_geographies", model.KindGeography, uc.AllowedGeographies},
		{"restricted_geographies", model.KindGeography, uc.RestrictedGeographies},
		{"allowed_verticals", model.KindVertical, uc.AllowedVerticals},
		{"allowed_languages", model.KindLanguage, uc.AllowedLanguages},
	}
	for _, list := range lists {
		if len(list.keys) == 0 {
			continue
		}
		ids, err := t.resolver.ResolveKeys(ctx, list.kind, list.keys)
		if err != nil {
			return nil, fmt.Errorf("резолв %s: %w", list.field, err)
		}
		if len(ids) > 0 {
			c[list.field] = ids
		}
	}

	if uc.UsageLimit != "" {
		id, err := t.resolver.ResolveKey(ctx, model.KindUsageLimit, uc.UsageLimit)
		if err != nil {
			return nil, fmt.Errorf("резолв usage limit: %w", err)
		}
		if id != "" {
			c["usage_limit"] = id
		}
	}

	return c, nil
}

// putResolved резолвит словарный ключ и кладёт ID в черновик.
// Пустой или нерезолвящийся ключ не добавляет поле.
func (t *AssetTransformer) putResolved(ctx context.Context, meta damclient.Metadata, field string, kind model.VocabularyKind, key string) error {
	id, err := t.resolver.ResolveKey(ctx, kind, key)
	if err != nil {
		return err
	}
	if id != "" {
		meta[field] = id
	}
	return nil
}

// putLocalized разворачивает локализованную карту в плоские ключи.
func putLocalized(meta damclient.Metadata, field string, values map[string]string) {
	for locale, value := range values {
		if value != "" {
			meta[field+"_"+locale] = value
		}
	}
}
