package fakeapi

import (
	"time"

	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

// statsMonths is the length of every time series.
const statsMonths = 6

type statsPayload struct {
	Counts     map[string]map[string]int `json:"counts"`
	Totals     map[string]float64        `json:"totals"`
	TimeSeries []map[string]any          `json:"timeSeries"`
}

// monthSeries buckets rows into the last statsMonths calendar months.
type monthSeries struct {
	labels []string
	values map[string]map[string]float64
}

func newMonthSeries(now time.Time, metrics ...string) *monthSeries {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	ms := &monthSeries{values: map[string]map[string]float64{}}
	for i := statsMonths - 1; i >= 0; i-- {
		ms.labels = append(ms.labels, first.AddDate(0, -i, 0).Format("2006-01"))
	}
	for _, metric := range metrics {
		ms.values[metric] = map[string]float64{}
	}
	return ms
}

func (ms *monthSeries) add(metric string, at time.Time, v float64) {
	if bucket, ok := ms.values[metric]; ok {
		bucket[at.Format("2006-01")] += v
	}
}

func (ms *monthSeries) points() []map[string]any {
	out := make([]map[string]any, 0, len(ms.labels))
	for _, label := range ms.labels {
		point := map[string]any{"date": label}
		for metric, bucket := range ms.values {
			point[metric] = bucket[label]
		}
		out = append(out, point)
	}
	return out
}

func countBy(rows []backend.Record, key string) map[string]int {
	out := map[string]int{}
	for _, row := range rows {
		if v := row.String(key); v != "" {
			out[v]++
		}
	}
	return out
}

func countWhere(rows []backend.Record, key, value string) float64 {
	n := 0.0
	for _, row := range rows {
		if row.String(key) == value {
			n++
		}
	}
	return n
}

func sumWhere(rows []backend.Record, sumKey string, keep func(backend.Record) bool) float64 {
	total := 0.0
	for _, row := range rows {
		if keep != nil && !keep(row) {
			continue
		}
		if v, ok := row.Float(sumKey); ok {
			total += v
		}
	}
	return total
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// dashboardStats computes the payload served at /dashboard/:code.
func (s *Server) dashboardStats(code string) (statsPayload, bool) {
	now := s.opts.Now()
	rows := func(resource string) []backend.Record {
		if t, ok := s.tables[resource]; ok {
			return t.all()
		}
		return nil
	}

	switch code {
	case "general":
		equipos, ordenes, visitas := rows("equipos"), rows("ordenes"), rows("visitas")
		series := newMonthSeries(now, "visitas", "ordenes")
		for _, v := range visitas {
			if at, ok := v.Time("fecha"); ok {
				series.add("visitas", at, 1)
			}
		}
		for _, o := range ordenes {
			if at, ok := o.Time("fechaCreacion"); ok {
				series.add("ordenes", at, 1)
			}
		}
		return statsPayload{
			Counts: map[string]map[string]int{
				"equiposPorEstado":    countBy(equipos, "estado"),
				"ordenesPorPrioridad": countBy(ordenes, "prioridad"),
			},
			Totals: map[string]float64{
				"clientes":        float64(len(rows("clientes"))),
				"equipos":         float64(len(equipos)),
				"ordenesAbiertas": float64(len(ordenes)) - countWhere(ordenes, "estado", "cerrada"),
				"ingresosMes": sumWhere(rows("cotizaciones"), "valorTotal", func(r backend.Record) bool {
					at, ok := r.Time("fecha")
					return ok && r.String("estado") == "aprobada" && sameMonth(at, now)
				}),
			},
			TimeSeries: series.points(),
		}, true

	case "equipos":
		equipos := rows("equipos")
		series := newMonthSeries(now, "mantenimientos")
		for _, v := range rows("visitas") {
			if at, ok := v.Time("fecha"); ok && v.String("tipo") == "preventiva" {
				series.add("mantenimientos", at, 1)
			}
		}
		return statsPayload{
			Counts: map[string]map[string]int{
				"porEstado": countBy(equipos, "estado"),
				"porMarca":  countBy(equipos, "marca"),
			},
			Totals: map[string]float64{
				"equipos":         float64(len(equipos)),
				"enMantenimiento": countWhere(equipos, "estado", "en_mantenimiento"),
				"fueraDeServicio": countWhere(equipos, "estado", "fuera_de_servicio"),
			},
			TimeSeries: series.points(),
		}, true

	case "visitas":
		visitas := rows("visitas")
		series := newMonthSeries(now, "visitas")
		for _, v := range visitas {
			if at, ok := v.Time("fecha"); ok {
				series.add("visitas", at, 1)
			}
		}
		return statsPayload{
			Counts: map[string]map[string]int{
				"porTipo":   countBy(visitas, "tipo"),
				"porEstado": countBy(visitas, "estado"),
			},
			Totals: map[string]float64{
				"visitas":     float64(len(visitas)),
				"completadas": countWhere(visitas, "estado", "completada"),
				"programadas": countWhere(visitas, "estado", "programada"),
			},
			TimeSeries: series.points(),
		}, true

	case "ordenes":
		ordenes := rows("ordenes")
		series := newMonthSeries(now, "abiertas", "cerradas")
		for _, o := range ordenes {
			at, ok := o.Time("fechaCreacion")
			if !ok {
				continue
			}
			if o.String("estado") == "cerrada" {
				series.add("cerradas", at, 1)
			} else {
				series.add("abiertas", at, 1)
			}
		}
		return statsPayload{
			Counts: map[string]map[string]int{
				"porEstado":    countBy(ordenes, "estado"),
				"porPrioridad": countBy(ordenes, "prioridad"),
			},
			Totals: map[string]float64{
				"abiertas":   countWhere(ordenes, "estado", "abierta"),
				"cerradas":   countWhere(ordenes, "estado", "cerrada"),
				"costoTotal": sumWhere(ordenes, "costo", nil),
			},
			TimeSeries: series.points(),
		}, true

	case "cotizaciones":
		cotizaciones := rows("cotizaciones")
		series := newMonthSeries(now, "valor")
		for _, q := range cotizaciones {
			if at, ok := q.Time("fecha"); ok {
				v, _ := q.Float("valorTotal")
				series.add("valor", at, v)
			}
		}
		aprobadas := countWhere(cotizaciones, "estado", "aprobada")
		rechazadas := countWhere(cotizaciones, "estado", "rechazada")
		rate := 0.0
		if aprobadas+rechazadas > 0 {
			rate = aprobadas / (aprobadas + rechazadas) * 100
		}
		return statsPayload{
			Counts: map[string]map[string]int{
				"porEstado": countBy(cotizaciones, "estado"),
			},
			Totals: map[string]float64{
				"cotizaciones": float64(len(cotizaciones)),
				"valorAprobado": sumWhere(cotizaciones, "valorTotal", func(r backend.Record) bool {
					return r.String("estado") == "aprobada"
				}),
				"tasaAprobacion": rate,
			},
			TimeSeries: series.points(),
		}, true
	}
	return statsPayload{}, false
}
