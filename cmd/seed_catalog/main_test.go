package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const sampleXML = `<?xml version="1.0" encoding="ISO-8859-1"?>
<catalogo>
  <centros>
    <centro codigo="C200" nombre="Planta Sur">
      <almacen codigo="A200" nombre="Almacén Sur"/>
    </centro>
    <centro codigo=" C100 " nombre="Planta Norte">
      <almacen codigo="A100" nombre="Almacén Norte"/>
      <almacen codigo="A101" nombre="Taller d'Obra"/>
    </centro>
  </centros>
  <materiales>
    <material codigo="MAT-002" descripcion="Válvula de compuerta" unidad="un" precio="10,5"/>
    <material codigo="MAT-001" descripcion="Tornillería" unidad="KG" precio="2.25"/>
    <material codigo="" descripcion="sin código" precio="1"/>
  </materiales>
</catalogo>`

func latin1(t *testing.T, s string) []byte {
	t.Helper()
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

func TestParseCatalog(t *testing.T) {
	cat, err := parseCatalog(bytes.NewReader(latin1(t, sampleXML)))
	require.NoError(t, err)

	require.Len(t, cat.Centros, 2)
	assert.Equal(t, "C100", cat.Centros[0].Codigo)
	assert.Len(t, cat.Centros[0].Almacenes, 2)

	require.Len(t, cat.Materiales, 2)
	assert.Equal(t, "MAT-001", cat.Materiales[0].Codigo)
	assert.Equal(t, "Tornillería", cat.Materiales[0].Descripcion)
	assert.Equal(t, "2.2500", cat.Materiales[0].Precio)
	assert.Equal(t, "UN", cat.Materiales[1].Unidad)
	assert.Equal(t, "10.5000", cat.Materiales[1].Precio)
}

func TestParseCatalog_PrecioInvalido(t *testing.T) {
	src := `<catalogo><materiales><material codigo="X" descripcion="Y" precio="abc"/></materiales></catalogo>`
	_, err := parseCatalog(strings.NewReader(src))
	assert.Error(t, err)
}

func TestWriteSQL(t *testing.T) {
	cat, err := parseCatalog(bytes.NewReader(latin1(t, sampleXML)))
	require.NoError(t, err)

	var up bytes.Buffer
	require.NoError(t, writeUp(&up, cat))
	sql := up.String()
	assert.Contains(t, sql, "INSERT INTO centers (code, name) VALUES ('C100', 'Planta Norte')")
	assert.Contains(t, sql, "('A101', 'C100', 'Taller d''Obra')")
	assert.Contains(t, sql, "('MAT-002', 'Válvula de compuerta', 'UN', 10.5000)")
	assert.Less(t, strings.Index(sql, "'C100'"), strings.Index(sql, "'C200'"))

	var down bytes.Buffer
	require.NoError(t, writeDown(&down, cat))
	assert.Contains(t, down.String(), "DELETE FROM materials WHERE code IN ('MAT-001', 'MAT-002');")
	assert.Contains(t, down.String(), "DELETE FROM centers WHERE code = 'C200';")
}
