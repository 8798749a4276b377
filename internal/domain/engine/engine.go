package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Engine identifies one of the supported game engines.
type Engine uint8

// Known engines. The zero value is not a valid engine.
const (
	T6 Engine = iota + 1
	T5
	T4
	IW5
)

const (
	// serverFilesURLTemplate points at the file host serving the server file bundles.
	serverFilesURLTemplate = "https://drive.google.com/uc?export=download&id=%s&confirm=t"

	// configURLTemplate is the source-hosting API zipball of the community server configs.
	configURLTemplate = "https://api.github.com/repos/xerxes-at/%sServerConfigs/zipball/master"
)

var (
	// ErrUnknownEngine is returned when parsing an unsupported engine name.
	ErrUnknownEngine = errors.New("unknown engine")
	// ErrNoServerFiles is returned for engines without a published server file bundle.
	ErrNoServerFiles = errors.New("no server files published for engine")
)

// descriptor is the static data attached to an engine.
type descriptor struct {
	name          string
	serverFilesID string
}

//nolint:gochecknoglobals // Read-only lookup table.
var descriptors = map[Engine]descriptor{
	T6:  {name: "T6", serverFilesID: "1RCqhm_1oMEDSk-VoeQy_tWTE-9jZ6Exd"},
	T5:  {name: "T5", serverFilesID: "1bDArK1W2kVse753C0Ht_n0hRYiaQ8ZfE"},
	T4:  {name: "T4", serverFilesID: "1AqTkGMXj2B2UTnm6hg_WFfQLVxXJDn3K"},
	IW5: {name: "IW5"},
}

// All returns every known engine in declaration order.
func All() []Engine {
	return []Engine{T6, T5, T4, IW5}
}

// Parse converts a case-insensitive engine name into an Engine.
func Parse(s string) (Engine, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, e := range All() {
		if descriptors[e].name == name {
			return e, nil
		}
	}

	return 0, fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownEngine, s, strings.Join(Names(), ", "))
}

// Names returns the lower-case names accepted by Parse.
func Names() []string {
	names := make([]string, 0, len(descriptors))
	for _, e := range All() {
		names = append(names, strings.ToLower(descriptors[e].name))
	}

	return names
}

// Valid reports whether e is one of the known engines.
func (e Engine) Valid() bool {
	_, ok := descriptors[e]

	return ok
}

// String returns the display name, e.g. "T6".
func (e Engine) String() string {
	if d, ok := descriptors[e]; ok {
		return d.name
	}

	return fmt.Sprintf("Engine(%d)", uint8(e))
}

// ServerFilesURL returns the download link of the engine's server file bundle.
func (e Engine) ServerFilesURL() (string, error) {
	d, ok := descriptors[e]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownEngine, e)
	}

	if d.serverFilesID == "" {
		return "", fmt.Errorf("%w: %s", ErrNoServerFiles, e)
	}

	return fmt.Sprintf(serverFilesURLTemplate, d.serverFilesID), nil
}

// ConfigURL returns the zipball link of the engine's server config repository.
func (e Engine) ConfigURL() (string, error) {
	d, ok := descriptors[e]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownEngine, e)
	}

	return fmt.Sprintf(configURLTemplate, d.name), nil
}
