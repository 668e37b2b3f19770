package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/goliatone/go-maintenance-dashboard/components/listview"
	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

func ordenesTable() Table {
	t := NewTable("Órdenes de trabajo", []listview.ColumnSchema{
		{Key: "numero", Label: "Número"},
		{Key: "estado", Label: "Estado", Format: listview.FormatStatus},
		{Key: "costo", Label: "Costo", Format: listview.FormatMoney},
		{Key: "descripcion"},
	}, []backend.Record{
		{"id": 1, "numero": "OT-001", "estado": "en_progreso", "costo": 1500.5, "descripcion": "Cambio de batería, monitor"},
		{"id": 2, "numero": "OT-002", "estado": "cerrada", "costo": 80.0, "descripcion": "Calibración"},
	})
	t.GeneratedAt = time.Date(2024, 5, 20, 9, 30, 0, 0, time.UTC)
	return t
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ordenesTable()))
	want := "Número,Estado,Costo,Descripcion\n" +
		"OT-001,en progreso,\"$1.500,50\",\"Cambio de batería, monitor\"\n" +
		"OT-002,cerrada,\"$80,00\",Calibración\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, ordenesTable()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Órdenes de trabajo"}, f.GetSheetList())
	header, err := f.GetCellValue("Órdenes de trabajo", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Número", header)
	status, err := f.GetCellValue("Órdenes de trabajo", "B2")
	require.NoError(t, err)
	assert.Equal(t, "en progreso", status)
	cost, err := f.GetCellValue("Órdenes de trabajo", "C2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1500.5", cost)
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	table := ordenesTable()
	for i := 3; i <= 80; i++ {
		table.Rows = append(table.Rows, backend.Record{"numero": fmt.Sprintf("OT-%03d", i), "estado": "abierta"})
	}
	require.NoError(t, WritePDF(&buf, table))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWritePDFEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatPDF, NewTable("Auditoría", []listview.ColumnSchema{{Key: "fecha"}}, nil)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWriteUnsupported(t *testing.T) {
	require.Error(t, Write(&bytes.Buffer{}, "json", Table{}))
	assert.False(t, Supported("json"))
	assert.True(t, Supported(FormatXLSX))
	assert.Equal(t, "application/pdf", ContentType(FormatPDF))
}

func TestFilename(t *testing.T) {
	at := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "ordenes_de_trabajo_20240520.xlsx", Filename("Órdenes de trabajo", FormatXLSX, at))
	assert.Equal(t, "export_20240520.csv", Filename("", FormatCSV, at))
}

func rows(n int) []backend.Record {
	out := make([]backend.Record, n)
	for i := range out {
		out[i] = backend.Record{"id": i + 1, "nombre": fmt.Sprintf("Equipo %04d", i+1)}
	}
	return out
}

func TestCollectReadsEveryPage(t *testing.T) {
	source := listview.NewLocalSource(rows(230))
	var pages []int
	fetch := func(ctx context.Context, state listview.FilterState) (backend.Page, error) {
		pages = append(pages, state.Page)
		assert.Equal(t, 100, state.PageSize)
		return source.Fetch(ctx, state)
	}
	got, truncated, err := collect(context.Background(), fetch, listview.NewFilterState(15, "id", "asc").WithPage(4), 100, 1000)
	require.NoError(t, err)
	assert.False(t, truncated)
	assert.Len(t, got, 230)
	assert.Equal(t, []int{1, 2, 3}, pages)
}

func TestCollectStopsAtCap(t *testing.T) {
	source := listview.NewLocalSource(rows(350))
	got, truncated, err := collect(context.Background(), source.Fetch, listview.NewFilterState(15, "", ""), 100, 250)
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Len(t, got, 250)
}

func TestCollectPropagatesErrors(t *testing.T) {
	boom := errors.New("Error de conexión")
	fetch := func(context.Context, listview.FilterState) (backend.Page, error) { return backend.Page{}, boom }
	_, _, err := Collect(context.Background(), fetch, listview.NewFilterState(15, "", ""))
	require.ErrorIs(t, err, boom)
}

func TestTableHeaderDerivesLabels(t *testing.T) {
	table := NewTable("x", []listview.ColumnSchema{{Key: "fechaInstalacion"}}, nil)
	assert.True(t, strings.EqualFold(table.Header()[0], "fecha instalacion"))
}
