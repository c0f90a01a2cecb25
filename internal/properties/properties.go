// Package properties builds the static request parameters sent with every
// configuration download: OS, locale, app identity and a stable install id.
package properties

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"

	"github.com/scrypster/switchboard/pkg/types"
)

// Parameter keys.
const (
	KeyOSMajorVersion = "os_major_version"
	KeyOSVersion      = "os_version"
	KeyDevice         = "device"
	KeyLang           = "lang"
	KeyManufacturer   = "manufacturer"
	KeyCountry        = "country"
	KeyAppID          = "appId"
	KeyVersion        = "version"
	KeyBuild          = "build"
	KeyUUID           = "uuid"
	KeyTrackingID     = "tracking_id"
)

// Unknown is reported for anything that cannot be determined.
const Unknown = "unknown"

// App identifies the host application.
type App struct {
	ID           string
	Version      string
	Build        string
	Manufacturer string
}

// Environment is the host description used for Defaults. Detect fills it
// from the running process.
type Environment struct {
	OSVersion string
	Device    string
	Locale    string // POSIX locale such as "en_US.UTF-8"
}

// Detect describes the running process.
func Detect() Environment {
	return Environment{
		OSVersion: osVersion(),
		Device:    runtime.GOOS + "/" + runtime.GOARCH,
		Locale:    firstNonEmpty(os.Getenv("LC_ALL"), os.Getenv("LC_MESSAGES"), os.Getenv("LANG")),
	}
}

// Defaults returns the parameters for uuid.
func Defaults(uuid string, app App, env Environment) types.Values {
	lang, country := splitLocale(env.Locale)
	return types.Values{
		KeyUUID:           types.StringValue(uuid),
		KeyOSMajorVersion: types.StringValue(majorVersion(env.OSVersion)),
		KeyOSVersion:      types.StringValue(orUnknown(env.OSVersion)),
		KeyDevice:         types.StringValue(orUnknown(env.Device)),
		KeyLang:           types.StringValue(lang),
		KeyManufacturer:   types.StringValue(orUnknown(app.Manufacturer)),
		KeyCountry:        types.StringValue(country),
		KeyAppID:          types.StringValue(orUnknown(app.ID)),
		KeyVersion:        types.StringValue(orUnknown(app.Version)),
		KeyBuild:          types.StringValue(orUnknown(app.Build)),
	}
}

// Parameters merges userData over the defaults; userData wins. A non-empty
// trackingID is added under tracking_id.
func Parameters(uuid, trackingID string, userData types.Values, app App, env Environment) types.Values {
	params := Defaults(uuid, app, env)
	if trackingID != "" {
		params[KeyTrackingID] = types.StringValue(trackingID)
	}
	for key, value := range userData {
		params[key] = value
	}
	return params
}

const installIDFile = "install_id"

// InstallID returns the identifier stored in dataDir, creating it on first
// use.
func InstallID(dataDir string) (string, error) {
	path := filepath.Join(dataDir, installIDFile)
	data, err := os.ReadFile(path)
	if err == nil {
		if id, perr := uuid.Parse(strings.TrimSpace(string(data))); perr == nil {
			return id.String(), nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("properties: read install id: %w", err)
	}

	id := uuid.New().String()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return "", fmt.Errorf("properties: create data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("properties: write install id: %w", err)
	}
	return id, nil
}

func splitLocale(locale string) (lang, country string) {
	locale, _, _ = strings.Cut(locale, ".")
	locale, _, _ = strings.Cut(locale, "@")
	if locale == "" || locale == "C" || locale == "POSIX" {
		return Unknown, Unknown
	}
	lang, country, found := strings.Cut(strings.ReplaceAll(locale, "-", "_"), "_")
	if !found || country == "" {
		return strings.ToLower(lang), Unknown
	}
	return strings.ToLower(lang), strings.ToUpper(country)
}

func majorVersion(version string) string {
	if version == "" {
		return Unknown
	}
	major, _, _ := strings.Cut(version, ".")
	return major
}

// osVersion reads VERSION_ID from /etc/os-release on Linux.
func osVersion() string {
	if runtime.GOOS != "linux" {
		return ""
	}
	f, err := os.Open("/etc/os-release")
	if err != nil {
		return ""
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if value, ok := strings.CutPrefix(scanner.Text(), "VERSION_ID="); ok {
			return strings.Trim(value, `"`)
		}
	}
	return ""
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
