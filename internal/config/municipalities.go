package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	apperrors "taxtrend/internal/errors"
)

// defaultMunicipalities is keyed by code, the same layout as the JSON file.
var defaultMunicipalities = map[string]string{
	"ARE": "Areal",
	"ITG": "Itaguai",
	"POR": "Porto Real",
}

// MunicipalityTable maps municipality names to codes and back.
type MunicipalityTable struct {
	codes map[string]string // name -> code
	names map[string]string // code -> name
	upper map[string]string // upper(name) -> code
}

// DefaultMunicipalityTable returns the built-in table.
func DefaultMunicipalityTable() *MunicipalityTable {
	t, err := NewMunicipalityTable(defaultMunicipalities)
	if err != nil {
		panic(err)
	}
	return t
}

// NewMunicipalityTable builds a table from {code: name} pairs. Two codes
// sharing a name make the lookup ambiguous and are rejected.
func NewMunicipalityTable(byCode map[string]string) (*MunicipalityTable, error) {
	t := &MunicipalityTable{
		codes: make(map[string]string, len(byCode)),
		names: make(map[string]string, len(byCode)),
		upper: make(map[string]string, len(byCode)),
	}

	codes := make([]string, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, raw := range codes {
		code := strings.TrimSpace(raw)
		name := strings.TrimSpace(byCode[raw])
		if code == "" || name == "" {
			return nil, apperrors.NewConfigError("empty municipality code or name", nil).
				WithContext("code", code)
		}
		if prev, ok := t.codes[name]; ok {
			return nil, apperrors.NewConfigError("duplicate municipality name", nil).
				WithContext("name", name).
				WithContext("codes", prev+","+code)
		}
		t.codes[name] = code
		t.names[code] = name
		t.upper[strings.ToUpper(name)] = code
	}
	return t, nil
}

// LoadMunicipalityTable reads a {code: name} JSON file. An empty path returns
// the built-in table.
func LoadMunicipalityTable(path string) (*MunicipalityTable, error) {
	if path == "" {
		return DefaultMunicipalityTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to read municipality table", err).WithContext("path", path)
	}

	var byCode map[string]string
	if err := json.Unmarshal(data, &byCode); err != nil {
		return nil, apperrors.NewConfigError("failed to parse municipality table", err).WithContext("path", path)
	}
	if len(byCode) == 0 {
		return nil, apperrors.NewConfigError("municipality table is empty", nil).WithContext("path", path)
	}
	return NewMunicipalityTable(byCode)
}

// Code returns the code for a municipality name. The lookup is exact after
// trimming, then case-insensitive.
func (t *MunicipalityTable) Code(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if code, ok := t.codes[name]; ok {
		return code, true
	}
	code, ok := t.upper[strings.ToUpper(name)]
	return code, ok
}

// Name returns the canonical name for a code.
func (t *MunicipalityTable) Name(code string) (string, bool) {
	name, ok := t.names[code]
	return name, ok
}

// Len returns the number of municipalities.
func (t *MunicipalityTable) Len() int {
	return len(t.names)
}

func (t *MunicipalityTable) String() string {
	return fmt.Sprintf("MunicipalityTable(%d)", t.Len())
}
