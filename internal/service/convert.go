// convert.go — конвертация DTO License Catalog в доменную модель.
package service

import (
	"fmt"
	"time"

	"github.com/bigkaa/mediastore/sync-module/internal/domain/model"
	"github.com/bigkaa/mediastore/sync-module/internal/lcclient"
)

// lcAssetToModel конвертирует ассет LC в доменную модель.
// Временные поля парсятся из ISO 8601 / RFC 3339.
func lcAssetToModel(a lcclient.Asset) (*model.Asset, error) {
	lastUpdatedAt, err := time.Parse(time.RFC3339, a.LastUpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("парсинг lastUpdatedAt %q: %w", a.LastUpdatedAt, err)
	}

	asset := &model.Asset{
		TransactionID: a.TransactionID,
		Provider:      a.Provider,
		Category:      a.Category,
		Name:          a.Name,
		Description:   a.Description,
		Keywords:      a.Keywords,
		Project:       a.Project,
		Collection:    a.Collection,
		AssetURL:      a.AssetURL,
		PreviewURL:    a.PreviewURL,
		BinaryID:      a.BinaryID,
		BinaryVersion: a.BinaryVersion,
		Cancelled:     a.Cancelled,
		LastUpdatedAt: lastUpdatedAt,
	}

	if a.PurchasedAt != "" {
		purchasedAt, err := time.Parse(time.RFC3339, a.PurchasedAt)
		if err != nil {
			return nil, fmt.Errorf("парсинг purchasedAt %q: %w", a.PurchasedAt, err)
		}
		asset.PurchasedAt = purchasedAt
	}

	license, err := lcLicenseToModel(a.License)
	if err != nil {
		return nil, err
	}
	asset.License = *license

	for _, p := range a.CompoundParts {
		asset.CompoundParts = append(asset.CompoundParts, model.CompoundPart{
			TransactionID: p.TransactionID,
			Usage:         p.Usage,
		})
	}

	return asset, nil
}

// lcLicenseToModel конвертирует лицензионный блок.
func lcLicenseToModel(l lcclient.License) (*model.License, error) {
	license := &model.License{
		Licensee:    l.Licensee,
		Type:        l.Type,
		Text:        l.Text,
		OptionTexts: l.OptionTexts,
		TextURLs:    l.TextURLs,
	}

	for _, uc := range l.UsageConstraints {
		constraint, err := lcUsageConstraintToModel(uc)
		if err != nil {
			return nil, err
		}
		license.UsageConstraints = append(license.UsageConstraints, *constraint)
	}

	if l.DownloadConstraint != nil {
		dc := &model.DownloadConstraint{MaxDownloads: l.DownloadConstraint.MaxDownloads}
		if l.DownloadConstraint.DownloadUntil != nil {
			until, err := parseOptionalTime(*l.DownloadConstraint.DownloadUntil, "downloadUntil")
			if err != nil {
				return nil, err
			}
			dc.DownloadUntil = until
		}
		license.DownloadConstraint = dc
	}

	if l.ReleaseDetails != nil {
		license.ReleaseDetails = &model.ReleaseDetails{
			State: l.ReleaseDetails.State,
			Note:  l.ReleaseDetails.Note,
		}
	}

	return license, nil
}

// lcUsageConstraintToModel конвертирует ограничение использования.
func lcUsageConstraintToModel(uc lcclient.UsageConstraint) (*model.UsageConstraint, error) {
	validFrom, err := time.Parse(time.RFC3339, uc.ValidFrom)
	if err != nil {
		return nil, fmt.Errorf("парсинг validFrom %q: %w", uc.ValidFrom, err)
	}

	constraint := &model.UsageConstraint{
		AllowedUsages:         uc.AllowedUsages,
		RestrictedUsages:      uc.RestrictedUsages,
		AllowedSizes:          uc.AllowedSizes,
		AllowedPlacements:     uc.AllowedPlacements,
		AllowedDistributions:  uc.AllowedDistributions,
		AllowedGeographies:    uc.AllowedGeographies,
		RestrictedGeographies: uc.RestrictedGeographies,
		AllowedVerticals:      uc.AllowedVerticals,
		AllowedLanguages:      uc.AllowedLanguages,
		UsageLimit:            uc.UsageLimit,
		ValidFrom:             validFrom,
		EditorialUse:          uc.EditorialUse,
	}

	if uc.ValidUntil != nil {
		until, err := parseOptionalTime(*uc.ValidUntil, "validUntil")
		if err != nil {
			return nil, err
		}
		constraint.ValidUntil = until
	}
	if uc.ToBeUsedUntil != nil {
		until, err := parseOptionalTime(*uc.ToBeUsedUntil, "toBeUsedUntil")
		if err != nil {
			return nil, err
		}
		constraint.ToBeUsedUntil = until
	}

	return constraint, nil
}

// parseOptionalTime парсит опциональное временное поле.
func parseOptionalTime(value, field string) (*time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("парсинг %s %q: %w", field, value, err)
	}
	return &t, nil
}
