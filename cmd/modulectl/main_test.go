package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-maintenance-dashboard/components/form"
	"github.com/goliatone/go-maintenance-dashboard/components/listview"
	"github.com/goliatone/go-maintenance-dashboard/components/modules"
)

func TestScaffoldWritesValidManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modules.yaml")
	cmd := &scaffoldCmd{
		Code:         "repuestos",
		Singular:     "Repuesto",
		ManifestPath: path,
		Field:        []string{"nombre=text", "marca=select", "estado=select", "fechaIngreso=date", "notas=textarea"},
		Required:     []string{"nombre", "estado"},
		Options:      []string{"estado=disponible|agotado"},
		Catalog:      []string{"marca=marcas"},
		Exportable:   true,
	}
	require.NoError(t, cmd.Run(context.Background()))

	doc, err := modules.ReadManifest(path)
	require.NoError(t, err)
	require.Len(t, doc.Modules, 1)
	m := doc.Modules[0]
	assert.Equal(t, "repuestos", m.Resource)
	assert.Equal(t, "Repuestos", m.Title)
	assert.Equal(t, "nombre", m.SortBy)
	assert.True(t, m.Exportable)

	require.Len(t, m.Fields, 5)
	assert.True(t, m.Fields[0].Required)
	assert.Equal(t, "marcas", m.Fields[1].Catalog)
	assert.Equal(t, []string{"disponible", "agotado"}, m.Fields[2].Options)
	assert.Equal(t, form.KindDate, m.Fields[3].Kind)
	assert.Equal(t, "Fecha ingreso", m.Fields[3].Label)

	require.Len(t, m.Columns, 6)
	assert.Equal(t, "id", m.Columns[0].Key)
	assert.Equal(t, listview.FormatStatus, m.Columns[3].Format)
	assert.Equal(t, listview.FormatDate, m.Columns[4].Format)
	assert.False(t, m.Columns[5].Sortable)
	assert.Len(t, m.Filters, 2)

	err = cmd.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already defines module repuestos")

	cmd.Overwrite = true
	cmd.Title = "Repuestos y partes"
	require.NoError(t, cmd.Run(context.Background()))
	doc, err = modules.ReadManifest(path)
	require.NoError(t, err)
	require.Len(t, doc.Modules, 1)
	assert.Equal(t, "Repuestos y partes", doc.Modules[0].Title)
}

func TestScaffoldRejectsBadSpecs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modules.yaml")

	cmd := &scaffoldCmd{Code: "repuestos", ManifestPath: path, Field: []string{"estado=select"}}
	assert.Error(t, cmd.Run(context.Background()), "select without options or catalog")

	cmd = &scaffoldCmd{Code: "repuestos", ManifestPath: path, Field: []string{"nombre=text"}, Options: []string{"estado"}}
	assert.Error(t, cmd.Run(context.Background()))
}

func TestSummarizeEmbeddedManifest(t *testing.T) {
	doc, err := modules.DefaultManifest()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, summarize(&out, doc))
	assert.Contains(t, out.String(), "clientes")
	assert.Contains(t, out.String(), "auditoria")
}
