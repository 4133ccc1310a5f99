package core

import (
	"fmt"
	"strings"
)

// Settings is the typed view of the keys the assembly itself reads from the
// configuration snapshot.
type Settings struct {
	AppAbsPath           string   `koanf:"app_abspath" mapstructure:"app_abspath"`
	DefaultLanguage      string   `koanf:"default_language" mapstructure:"default_language"`
	MediaStorageProvider string   `koanf:"media_storage_provider" mapstructure:"media_storage_provider"`
	MediaPrefix          string   `koanf:"media_prefix" mapstructure:"media_prefix"`
	MediaPrefixesToFix   []string `koanf:"media_prefixes_to_fix" mapstructure:"media_prefixes_to_fix"`
	CoreApps             []string `koanf:"core_apps" mapstructure:"core_apps"`
	InstalledApps        []string `koanf:"installed_apps" mapstructure:"installed_apps"`
	Versions             string   `koanf:"versions" mapstructure:"versions"`
	ContentExpiryMinutes int      `koanf:"content_expiry_minutes" mapstructure:"content_expiry_minutes"`
	IngestExpiryMinutes  int      `koanf:"ingest_expiry_minutes" mapstructure:"ingest_expiry_minutes"`
	EnsureIndexes        bool     `koanf:"ensure_indexes" mapstructure:"ensure_indexes"`
	IgnoreDuplicateKeys  bool     `koanf:"ignore_duplicate_keys" mapstructure:"ignore_duplicate_keys"`
	LogLevel             string   `koanf:"log_level" mapstructure:"log_level"`
}

func DefaultSettings() Settings {
	return Settings{
		DefaultLanguage:    "en",
		Versions:           "_versions",
		LogLevel:           "info",
		MediaPrefixesToFix: []string{},
		CoreApps:           []string{},
		InstalledApps:      []string{},
	}
}

func (s Settings) Validate() error {
	if strings.TrimSpace(s.DefaultLanguage) == "" {
		return fmt.Errorf("core: default_language is required")
	}
	if strings.TrimSpace(s.Versions) == "" {
		return fmt.Errorf("core: versions is required")
	}
	return nil
}

type settingKind int

const (
	settingString settingKind = iota
	settingStrings
	settingInt
	settingBool
)

var settingKinds = map[string]settingKind{
	KeyAppAbsPath:           settingString,
	KeyDefaultLanguage:      settingString,
	KeyMediaStorageProvider: settingString,
	KeyMediaPrefix:          settingString,
	KeyMediaPrefixesToFix:   settingStrings,
	KeyCoreApps:             settingStrings,
	KeyInstalledApps:        settingStrings,
	KeyVersions:             settingString,
	KeyContentExpiryMinutes: settingInt,
	KeyIngestExpiryMinutes:  settingInt,
	KeyEnsureIndexes:        settingBool,
	KeyIgnoreDuplicateKeys:  settingBool,
	KeyLogLevel:             settingString,
}

func settingsToLayerMap(s Settings) map[string]any {
	return map[string]any{
		KeyAppAbsPath:           s.AppAbsPath,
		KeyDefaultLanguage:      s.DefaultLanguage,
		KeyMediaStorageProvider: s.MediaStorageProvider,
		KeyMediaPrefix:          s.MediaPrefix,
		KeyMediaPrefixesToFix:   append([]string{}, s.MediaPrefixesToFix...),
		KeyCoreApps:             append([]string{}, s.CoreApps...),
		KeyInstalledApps:        append([]string{}, s.InstalledApps...),
		KeyVersions:             s.Versions,
		KeyContentExpiryMinutes: s.ContentExpiryMinutes,
		KeyIngestExpiryMinutes:  s.IngestExpiryMinutes,
		KeyEnsureIndexes:        s.EnsureIndexes,
		KeyIgnoreDuplicateKeys:  s.IgnoreDuplicateKeys,
		KeyLogLevel:             s.LogLevel,
	}
}

// snapshotToLayerMap picks the typed settings out of a snapshot. Values of an
// unexpected shape are left out so the defaults apply.
func snapshotToLayerMap(cfg *Snapshot) map[string]any {
	layer := map[string]any{}
	for key, kind := range settingKinds {
		value, ok := cfg.Get(key)
		if !ok || value == nil {
			continue
		}
		switch kind {
		case settingString:
			if text, ok := value.(string); ok {
				layer[key] = text
			}
		case settingStrings:
			if list, ok := toStringSlice(value); ok {
				layer[key] = list
			}
		case settingInt:
			if number, ok := toInt(value); ok {
				layer[key] = number
			}
		case settingBool:
			if flag, ok := toBool(value); ok {
				layer[key] = flag
			}
		}
	}
	return layer
}
