package services

import (
	"fmt"
)

type StorageKeys struct {
	CouponsPrefix string `yaml:"coupons_prefix"`
	TierPrefix    string `yaml:"tier_prefix"`
	FavoritesKey  string `yaml:"favorites_key"`
}

func DefaultStorageKeys() StorageKeys {
	return StorageKeys{
		CouponsPrefix: "user_coupons",
		TierPrefix:    "user_last_tier",
		FavoritesKey:  "favorite_coupons",
	}
}

func (k StorageKeys) Coupons(userID string) string {
	return fmt.Sprintf("%s:%s", k.CouponsPrefix, userID)
}

func (k StorageKeys) Tier(userID string) string {
	return fmt.Sprintf("%s:%s", k.TierPrefix, userID)
}

// Favorites returns the favorites key. An empty scope yields the global key.
func (k StorageKeys) Favorites(scope string) string {
	if scope == "" {
		return k.FavoritesKey
	}
	return fmt.Sprintf("%s:%s", k.FavoritesKey, scope)
}

func (k StorageKeys) withDefaults() StorageKeys {
	defaults := DefaultStorageKeys()
	if k.CouponsPrefix == "" {
		k.CouponsPrefix = defaults.CouponsPrefix
	}
	if k.TierPrefix == "" {
		k.TierPrefix = defaults.TierPrefix
	}
	if k.FavoritesKey == "" {
		k.FavoritesKey = defaults.FavoritesKey
	}
	return k
}
