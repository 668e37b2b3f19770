package modules

import (
	"bytes"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-maintenance-dashboard/components/form"
	"github.com/goliatone/go-maintenance-dashboard/components/listview"
	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

func TestDefaultRegistryCoversEveryModule(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)

	var codes []string
	for _, m := range reg.All() {
		codes = append(codes, m.Code)
	}
	assert.Equal(t, []string{
		"clientes", "equipos", "solicitudes", "visitas", "ordenes", "cotizaciones",
		"informes", "ciudades", "departamentos", "marcas", "bajas", "auditoria",
	}, codes)

	audit, ok := reg.Get("auditoria")
	require.True(t, ok)
	assert.True(t, audit.ReadOnly)
	assert.Nil(t, reg.Validator("auditoria"))
	assert.Equal(t, 25, audit.InitialState().PageSize)

	ciudades, ok := reg.Get("ciudades")
	require.True(t, ok)
	assert.Equal(t, "generales/ciudades", ciudades.Resource)
	assert.True(t, ciudades.Catalog)
	assert.NotNil(t, reg.Validator("ciudades"))

	equipos, _ := reg.Get("equipos")
	assert.True(t, equipos.Map)
	assert.Equal(t, []string{"marcas"}, equipos.Catalogs())
}

func TestNavigationGroupsGenerales(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	nav := reg.Navigation()

	var generales *NavGroup
	for i := range nav {
		if nav[i].Name == "Generales" {
			generales = &nav[i]
		}
	}
	require.NotNil(t, generales)
	require.Len(t, generales.Modules, 3)
	assert.Equal(t, "ciudades", generales.Modules[0].Code)
	assert.Len(t, nav, 10)
}

func TestDecodeManifestRejectsUnknownKeys(t *testing.T) {
	_, err := DecodeManifest(strings.NewReader(`
version: "1"
modules:
  - code: clientes
    resource: clientes
    title: Clientes
    colour: red
    columns: [{key: id}]
    fields: [{name: nombre, kind: text}]
`))
	require.Error(t, err)
}

func TestDecodeManifestValidation(t *testing.T) {
	cases := map[string]string{
		"version": `
version: "2"
modules: []
`,
		"duplicate": `
modules:
  - {code: a, resource: a, title: A, columns: [{key: id}], read_only: true}
  - {code: a, resource: b, title: B, columns: [{key: id}], read_only: true}
`,
		"no fields": `
modules:
  - {code: a, resource: a, title: A, columns: [{key: id}]}
`,
		"bad code": `
modules:
  - {code: "A B", resource: a, title: A, columns: [{key: id}], read_only: true}
`,
		"unknown sort": `
modules:
  - {code: a, resource: a, title: A, columns: [{key: id}], read_only: true, sort_by: nombre}
`,
		"empty": ``,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeManifest(strings.NewReader(payload))
			assert.Error(t, err)
		})
	}
}

func TestManifestEncodeRoundTrip(t *testing.T) {
	doc, err := DefaultManifest()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, doc.Encode(&buf))
	again, err := DecodeManifest(&buf)
	require.NoError(t, err)
	assert.Equal(t, doc.Modules, again.Modules)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	m := Module{Code: "x", Resource: "x", Title: "X", ReadOnly: true, Columns: []listview.ColumnSchema{{Key: "id"}}}
	require.NoError(t, reg.Register(m))
	assert.Error(t, reg.Register(m))
}

func TestRecordConvertsNumbers(t *testing.T) {
	m := Module{Fields: []form.FieldSchema{
		{Name: "nombre", Kind: form.KindText},
		{Name: "costo", Kind: form.KindNumber},
		{Name: "horas", Kind: form.KindNumber},
		{Name: "radio", Kind: form.KindNumber},
	}}
	rec := m.Record(form.Values{"nombre": " Monitor ", "costo": "1500", "horas": "1,5"})
	assert.Equal(t, "Monitor", rec["nombre"])
	assert.Equal(t, int64(1500), rec["costo"])
	assert.Equal(t, 1.5, rec["horas"])
	assert.Nil(t, rec["radio"])
	assert.Contains(t, rec, "radio")
}

func TestFormValuesFormatsDates(t *testing.T) {
	m := Module{Fields: []form.FieldSchema{
		{Name: "fecha", Kind: form.KindDate},
		{Name: "tecnico", Kind: form.KindText},
	}}
	values := m.FormValues(backend.Record{"fecha": "2024-03-05T10:00:00Z", "tecnico": "Ana", "id": 4})
	assert.Equal(t, form.Values{"fecha": "2024-03-05", "tecnico": "Ana"}, values)
}

func TestLookupUnknownModule(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Lookup("nope")
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))
}
