// seed_catalog genera la migración SQL del catálogo (centros, almacenes virtuales y materiales)
// a partir del export Materiales.xml del ERP, codificado en ISO-8859-1.
//
// Uso: go run ./cmd/seed_catalog [ruta/Materiales.xml]
// Por defecto busca Materiales.xml en el directorio actual.
// Escribe: migrations/000002_seed_catalog.up.sql y .down.sql
package main

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

type catalogo struct {
	Centros    []centro   `xml:"centros>centro"`
	Materiales []material `xml:"materiales>material"`
}

type centro struct {
	Codigo    string    `xml:"codigo,attr"`
	Nombre    string    `xml:"nombre,attr"`
	Almacenes []almacen `xml:"almacen"`
}

type almacen struct {
	Codigo string `xml:"codigo,attr"`
	Nombre string `xml:"nombre,attr"`
}

type material struct {
	Codigo      string `xml:"codigo,attr"`
	Descripcion string `xml:"descripcion,attr"`
	Unidad      string `xml:"unidad,attr"`
	Precio      string `xml:"precio,attr"`
}

func main() {
	xmlPath := "Materiales.xml"
	if len(os.Args) > 1 {
		xmlPath = os.Args[1]
	}
	f, err := os.Open(xmlPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir XML: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	cat, err := parseCatalog(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Decodificar XML: %v\n", err)
		os.Exit(1)
	}

	dir := filepath.Join(findModuleRoot(), "migrations")
	if err := writeFile(filepath.Join(dir, "000002_seed_catalog.up.sql"), func(w io.Writer) error { return writeUp(w, cat) }); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir migración: %v\n", err)
		os.Exit(1)
	}
	if err := writeFile(filepath.Join(dir, "000002_seed_catalog.down.sql"), func(w io.Writer) error { return writeDown(w, cat) }); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir migración: %v\n", err)
		os.Exit(1)
	}

	var almacenes int
	for _, c := range cat.Centros {
		almacenes += len(c.Almacenes)
	}
	fmt.Printf("Generado %s: %d centros, %d almacenes, %d materiales\n", dir, len(cat.Centros), almacenes, len(cat.Materiales))
}

// parseCatalog decodifica el export y normaliza códigos y precios. Los materiales sin código
// o descripción se descartan; un precio ilegible es error.
func parseCatalog(r io.Reader) (*catalogo, error) {
	var cat catalogo
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		if strings.EqualFold(charset, "ISO-8859-1") || strings.EqualFold(charset, "ISO8859-1") || strings.EqualFold(charset, "latin1") {
			return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
		}
		return input, nil
	}
	if err := dec.Decode(&cat); err != nil {
		return nil, err
	}

	mats := cat.Materiales[:0]
	for _, m := range cat.Materiales {
		m.Codigo = strings.TrimSpace(m.Codigo)
		m.Descripcion = strings.TrimSpace(m.Descripcion)
		if m.Codigo == "" || m.Descripcion == "" {
			continue
		}
		m.Unidad = strings.ToUpper(strings.TrimSpace(m.Unidad))
		if m.Unidad == "" {
			m.Unidad = "UN"
		}
		// El ERP exporta con coma decimal.
		raw := strings.ReplaceAll(strings.TrimSpace(m.Precio), ",", ".")
		if raw == "" {
			raw = "0"
		}
		p, err := decimal.NewFromString(raw)
		if err != nil || p.IsNegative() {
			return nil, fmt.Errorf("precio inválido en material %s: %q", m.Codigo, m.Precio)
		}
		m.Precio = p.StringFixed(4)
		mats = append(mats, m)
	}
	sort.Slice(mats, func(i, j int) bool { return mats[i].Codigo < mats[j].Codigo })
	cat.Materiales = mats

	for i := range cat.Centros {
		cat.Centros[i].Codigo = strings.TrimSpace(cat.Centros[i].Codigo)
		for j := range cat.Centros[i].Almacenes {
			cat.Centros[i].Almacenes[j].Codigo = strings.TrimSpace(cat.Centros[i].Almacenes[j].Codigo)
		}
	}
	sort.Slice(cat.Centros, func(i, j int) bool { return cat.Centros[i].Codigo < cat.Centros[j].Codigo })
	return &cat, nil
}

func writeUp(w io.Writer, cat *catalogo) error {
	var b strings.Builder
	b.WriteString("-- Catálogo de centros, almacenes virtuales y materiales\n")
	b.WriteString("-- Generado desde Materiales.xml\n\n")

	for _, c := range cat.Centros {
		fmt.Fprintf(&b, "INSERT INTO centers (code, name) VALUES ('%s', '%s')\n", escapeSQL(c.Codigo), escapeSQL(c.Nombre))
		b.WriteString("ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name;\n")
		for _, a := range c.Almacenes {
			fmt.Fprintf(&b, "INSERT INTO warehouses (code, center_code, name) VALUES ('%s', '%s', '%s')\n",
				escapeSQL(a.Codigo), escapeSQL(c.Codigo), escapeSQL(a.Nombre))
			b.WriteString("ON CONFLICT (code) DO UPDATE SET center_code = EXCLUDED.center_code, name = EXCLUDED.name;\n")
		}
	}

	if len(cat.Materiales) > 0 {
		b.WriteString("\nINSERT INTO materials (code, description, unit_measure, unit_price) VALUES\n")
		for i, m := range cat.Materiales {
			fmt.Fprintf(&b, "  ('%s', '%s', '%s', %s)", escapeSQL(m.Codigo), escapeSQL(m.Descripcion), escapeSQL(m.Unidad), m.Precio)
			if i < len(cat.Materiales)-1 {
				b.WriteString(",\n")
			} else {
				b.WriteString("\n")
			}
		}
		b.WriteString("ON CONFLICT (code) DO UPDATE SET description = EXCLUDED.description,\n")
		b.WriteString("  unit_measure = EXCLUDED.unit_measure, unit_price = EXCLUDED.unit_price, updated_at = now();\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeDown(w io.Writer, cat *catalogo) error {
	var b strings.Builder
	if codes := materialCodes(cat); len(codes) > 0 {
		fmt.Fprintf(&b, "DELETE FROM materials WHERE code IN (%s);\n", codes)
	}
	for _, c := range cat.Centros {
		fmt.Fprintf(&b, "DELETE FROM warehouses WHERE center_code = '%s';\n", escapeSQL(c.Codigo))
		fmt.Fprintf(&b, "DELETE FROM centers WHERE code = '%s';\n", escapeSQL(c.Codigo))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func materialCodes(cat *catalogo) string {
	quoted := make([]string, 0, len(cat.Materiales))
	for _, m := range cat.Materiales {
		quoted = append(quoted, "'"+escapeSQL(m.Codigo)+"'")
	}
	return strings.Join(quoted, ", ")
}

func writeFile(path string, fn func(io.Writer) error) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
