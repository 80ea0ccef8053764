package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

// StandardHeader is the column layout of the yearly value-added extracts.
var StandardHeader = []string{"Inscricao", "CPF_CNPJ", "Nome", "Nome_Cidade"}

// CSVFixture builds a semicolon separated extract.
type CSVFixture struct {
	Header []string
	Rows   [][]string
}

// NewCSVFixture starts a fixture with the identity columns followed by one
// "<year> (R$)" column per year.
func NewCSVFixture(years ...string) *CSVFixture {
	header := append([]string(nil), StandardHeader...)
	for _, y := range years {
		header = append(header, "Valor Adicionado "+y+" (R$)")
	}
	return &CSVFixture{Header: header}
}

// Row appends a data row.
func (f *CSVFixture) Row(cells ...string) *CSVFixture {
	f.Rows = append(f.Rows, cells)
	return f
}

// String renders the fixture with ';' separators and CRLF line endings.
func (f *CSVFixture) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(f.Header, ";"))
	b.WriteString("\r\n")
	for _, r := range f.Rows {
		b.WriteString(strings.Join(r, ";"))
		b.WriteString("\r\n")
	}
	return b.String()
}

// WriteLatin1 writes the fixture to dir/name encoded as ISO-8859-1.
func (f *CSVFixture) WriteLatin1(t *testing.T, dir, name string) string {
	t.Helper()
	encoded, err := charmap.ISO8859_1.NewEncoder().String(f.String())
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return WriteFile(t, dir, name, []byte(encoded))
}

// WriteUTF8 writes the fixture to dir/name as UTF-8.
func (f *CSVFixture) WriteUTF8(t *testing.T, dir, name string) string {
	t.Helper()
	return WriteFile(t, dir, name, []byte(f.String()))
}

// WriteFile writes raw bytes to dir/name.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}
