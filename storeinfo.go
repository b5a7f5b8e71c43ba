// Store-level records: identity (storeinfo.plist) and settings
// (properties.plist). Both live at the bundle root as XML property lists.
package vpad

// BundleVersion is the one store format version this package reads and
// writes. Other versions are rejected at open rather than migrated.
const BundleVersion = 5

const (
	storeInfoFile  = "storeinfo.plist"
	propertiesFile = "properties.plist"
	pagesDir       = "pages"
	recordExt      = ".plist"
)

// StoreInfo identifies a store. Written once at create, read-only after.
type StoreInfo struct {
	IsEncrypted   bool   `plist:"isEncrypted"`
	UUID          string `plist:"uuid"`
	BundleVersion int    `plist:"VoodooPadBundleVersion"`
}

// Properties holds store-wide settings. The field set is fixed by the
// desktop application; none of it is user-configurable at create time.
type Properties struct {
	AllowPluginLinks         bool   `plist:"allowPluginLinks"`
	BDToBookmarkAliasUpgrade bool   `plist:"bdToBookmarkAliasUpgrade"`
	CreateSpotlightIndex     bool   `plist:"createSpotlightIndex"`
	DBVersion                int    `plist:"dbVersion"`
	ExpectedPageCount        int    `plist:"expectedPageCount"`
	LocalWebAccess           bool   `plist:"localWebAccess"`
	NewPageUTI               string `plist:"newPageUTI"`
	SKIndexVersion           int    `plist:"skIndexVersion"`
	UpdatedFMPageToRealUTIs  bool   `plist:"updatedFMPageToRealUTIs"`
	UpdatedSpecialPages3     bool   `plist:"updatedSpecialPages3"`
	UUID                     string `plist:"uuid"`
	DefaultPage              string `plist:"defaultPage"`
	DefaultUUID              string `plist:"defaultUUID"`
}

func defaultProperties(storeUUID string) *Properties {
	return &Properties{
		AllowPluginLinks:         true,
		BDToBookmarkAliasUpgrade: true,
		CreateSpotlightIndex:     true,
		DBVersion:                7,
		ExpectedPageCount:        0,
		LocalWebAccess:           false,
		NewPageUTI:               UTIMarkdown,
		SKIndexVersion:           7,
		UpdatedFMPageToRealUTIs:  true,
		UpdatedSpecialPages3:     true,
		UUID:                     storeUUID,
	}
}
