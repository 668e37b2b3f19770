package dashboard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultManifest(t *testing.T) {
	doc, err := DefaultManifest()
	require.NoError(t, err)
	assert.Equal(t, "embedded:dashboards.yaml", doc.Source)

	reg := NewRegistry()
	require.NoError(t, reg.LoadManifest(doc))
	var codes []string
	for _, def := range reg.Definitions() {
		codes = append(codes, def.Code)
	}
	assert.Equal(t, []string{"general", "equipos", "visitas", "ordenes", "cotizaciones"}, codes)
}

func TestDecodeManifest(t *testing.T) {
	const payload = `
dashboards:
  - code: solicitudes
    title: Solicitudes
    stats_path: dashboard/solicitudes
    cards:
      - label: Pendientes
        total_key: pendientes
    charts:
      - id: solicitudes_prioridad
        title: Por prioridad
        kind: bar
        data_key: counts.porPrioridad
`
	doc, err := DecodeManifest(strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, ManifestVersion, doc.Version)
	require.Len(t, doc.Dashboards, 1)
	assert.Equal(t, "counts.porPrioridad", doc.Dashboards[0].Charts[0].DataKey)
}

func TestDecodeManifestRejects(t *testing.T) {
	cases := map[string]struct {
		payload string
		want    string
	}{
		"empty": {payload: "", want: "manifest is empty"},
		"unknown key": {payload: `
dashboards:
  - code: a
    title: A
    stats_path: dashboard/a
    widgets: []
`, want: "parse manifest"},
		"version": {payload: `
version: "2"
dashboards: []
`, want: "unsupported manifest version"},
		"duplicate": {payload: `
dashboards:
  - {code: a, title: A, stats_path: s, cards: [{label: L, total_key: k}]}
  - {code: a, title: B, stats_path: s, cards: [{label: L, total_key: k}]}
`, want: "duplicates dashboard code a"},
		"pie on time series": {payload: `
dashboards:
  - code: a
    title: A
    stats_path: s
    charts: [{id: c, kind: pie, data_key: timeSeries.visitas}]
`, want: "pie charts need a counts data key"},
		"bad kind": {payload: `
dashboards:
  - code: a
    title: A
    stats_path: s
    charts: [{id: c, kind: radar, data_key: counts.x}]
`, want: "unsupported kind"},
		"bad data key": {payload: `
dashboards:
  - code: a
    title: A
    stats_path: s
    charts: [{id: c, kind: bar, data_key: porEstado}]
`, want: "data_key"},
		"duplicate chart": {payload: `
dashboards:
  - code: a
    title: A
    stats_path: s
    charts:
      - {id: c, kind: bar, data_key: counts.x}
      - {id: c, kind: line, data_key: timeSeries.y}
`, want: "duplicates chart id c"},
		"card format": {payload: `
dashboards:
  - {code: a, title: A, stats_path: s, cards: [{label: L, total_key: k, format: euros}]}
`, want: "unknown format"},
		"nothing to show": {payload: `
dashboards:
  - {code: a, title: A, stats_path: s}
`, want: "no cards or charts"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeManifest(strings.NewReader(tc.payload))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestRegistryLoadManifestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
version: "1"
dashboards:
  - code: bajas
    title: Bajas
    stats_path: dashboard/bajas
    charts:
      - {id: bajas_motivo, title: Motivos, kind: pie, data_key: counts.porMotivo}
`), 0o600))

	reg := NewRegistry()
	doc, err := reg.LoadManifestFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Source)
	def, ok := reg.Definition("bajas")
	require.True(t, ok)
	assert.Equal(t, "dashboard/bajas", def.StatsPath)

	_, err = reg.LoadManifestFile(path)
	require.Error(t, err, "codes cannot be registered twice")

	_, err = ReadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestRegistryHooks(t *testing.T) {
	reg := NewRegistry()
	globalHookMu.Lock()
	saved := globalHooks
	globalHooks = nil
	globalHookMu.Unlock()
	t.Cleanup(func() {
		globalHookMu.Lock()
		globalHooks = saved
		globalHookMu.Unlock()
	})

	RegisterDefinitionHook(func(r *Registry) error {
		return r.Register(Definition{
			Code:      "informes",
			Title:     "Informes",
			StatsPath: "dashboard/informes",
			Cards:     []CardDescriptor{{Label: "Generados", TotalKey: "informes"}},
		})
	})
	require.NoError(t, reg.ApplyHooks())
	_, err := reg.Lookup("informes")
	require.NoError(t, err)
}
