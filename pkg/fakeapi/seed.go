package fakeapi

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

// ResourceUbicaciones holds the recorded position history of equipment.
const ResourceUbicaciones = "ubicaciones"

// DefaultCounts is the number of rows seeded per resource.
var DefaultCounts = map[string]int{
	"clientes":     40,
	"equipos":      120,
	"solicitudes":  60,
	"visitas":      150,
	"ordenes":      90,
	"cotizaciones": 50,
	"informes":     18,
	"bajas":        12,
	"auditoria":    30,
}

type city struct {
	nombre       string
	departamento string
	codigo       string
	lat, lng     float64
}

var cities = []city{
	{"Bogotá", "Cundinamarca", "11001", 4.7110, -74.0721},
	{"Medellín", "Antioquia", "05001", 6.2442, -75.5812},
	{"Cali", "Valle del Cauca", "76001", 3.4516, -76.5320},
	{"Barranquilla", "Atlántico", "08001", 10.9685, -74.7813},
	{"Cartagena", "Bolívar", "13001", 10.3910, -75.4794},
	{"Bucaramanga", "Santander", "68001", 7.1193, -73.1227},
	{"Pereira", "Risaralda", "66001", 4.8133, -75.6961},
	{"Manizales", "Caldas", "17001", 5.0703, -75.5138},
}

var departamentos = []struct{ nombre, codigo string }{
	{"Antioquia", "05"},
	{"Atlántico", "08"},
	{"Bolívar", "13"},
	{"Caldas", "17"},
	{"Cundinamarca", "25"},
	{"Risaralda", "66"},
	{"Santander", "68"},
	{"Valle del Cauca", "76"},
}

var marcas = []struct{ nombre, pais string }{
	{"Philips", "Países Bajos"},
	{"GE Healthcare", "Estados Unidos"},
	{"Mindray", "China"},
	{"Siemens Healthineers", "Alemania"},
	{"Dräger", "Alemania"},
	{"Medtronic", "Irlanda"},
	{"Welch Allyn", "Estados Unidos"},
	{"Nihon Kohden", "Japón"},
}

var equipmentNames = []string{
	"Monitor de signos vitales",
	"Ecógrafo",
	"Desfibrilador",
	"Electrocardiógrafo",
	"Bomba de infusión",
	"Ventilador mecánico",
	"Autoclave",
	"Máquina de anestesia",
	"Incubadora neonatal",
	"Rayos X portátil",
}

type seeder struct {
	faker  *gofakeit.Faker
	now    time.Time
	counts map[string]int
}

func (s *seeder) count(resource string) int {
	if n, ok := s.counts[resource]; ok {
		return n
	}
	return DefaultCounts[resource]
}

func (s *seeder) day(from, to time.Duration) string {
	return s.faker.DateRange(s.now.Add(from), s.now.Add(to)).Format("2006-01-02")
}

func (s *seeder) jitter(v, spread float64) float64 {
	return v + s.faker.Float64Range(-spread, spread)
}

// seed builds every table. The same seed and clock always produce the same
// data.
func seed(seed int64, now time.Time, counts map[string]int) map[string][]backend.Record {
	s := &seeder{faker: gofakeit.New(seed), now: now, counts: counts}
	tables := map[string][]backend.Record{}

	var rows []backend.Record
	for i, d := range departamentos {
		rows = append(rows, backend.Record{"id": i + 1, "nombre": d.nombre, "codigo": d.codigo})
	}
	tables["generales/departamentos"] = rows

	rows = nil
	for i, c := range cities {
		rows = append(rows, backend.Record{"id": i + 1, "nombre": c.nombre, "departamento": c.departamento, "codigo": c.codigo})
	}
	tables["generales/ciudades"] = rows

	rows = nil
	for i, m := range marcas {
		rows = append(rows, backend.Record{"id": i + 1, "nombre": m.nombre, "pais": m.pais})
	}
	tables["generales/marcas"] = rows

	tecnicos := make([]string, 6)
	for i := range tecnicos {
		tecnicos[i] = s.faker.Name()
	}

	clientes := make([]backend.Record, s.count("clientes"))
	clientCity := make([]city, len(clientes))
	for i := range clientes {
		c := cities[s.faker.Number(0, len(cities)-1)]
		clientCity[i] = c
		clientes[i] = backend.Record{
			"id":           i + 1,
			"razonSocial":  s.faker.Company() + " IPS",
			"nit":          s.faker.Numerify("9########-#"),
			"contacto":     s.faker.Name(),
			"telefono":     s.faker.Phone(),
			"email":        s.faker.Email(),
			"direccion":    s.faker.Street(),
			"departamento": c.departamento,
			"ciudad":       c.nombre,
			"estado":       s.faker.RandomString([]string{"activo", "activo", "activo", "inactivo"}),
		}
	}
	tables["clientes"] = clientes

	pick := func() (backend.Record, city) {
		if len(clientes) == 0 {
			return backend.Record{"razonSocial": "Sin cliente"}, cities[0]
		}
		i := s.faker.Number(0, len(clientes)-1)
		return clientes[i], clientCity[i]
	}

	equipos := make([]backend.Record, s.count("equipos"))
	var history []backend.Record
	for i := range equipos {
		cliente, c := pick()
		lat, lng := s.jitter(c.lat, 0.03), s.jitter(c.lng, 0.03)
		radius := float64(s.faker.Number(2, 10) * 100)
		equipos[i] = backend.Record{
			"id":                   i + 1,
			"nombre":               s.faker.RandomString(equipmentNames),
			"marca":                marcas[s.faker.Number(0, len(marcas)-1)].nombre,
			"modelo":               s.faker.Numerify("MX-###"),
			"serie":                s.faker.Numerify("SN########"),
			"cliente":              cliente.String("razonSocial"),
			"ubicacion":            c.nombre,
			"latitud":              lat,
			"longitud":             lng,
			"radioGeocerca":        radius,
			"fechaInstalacion":     s.day(-5*365*24*time.Hour, -30*24*time.Hour),
			"proximoMantenimiento": s.day(-15*24*time.Hour, 120*24*time.Hour),
			"estado":               s.faker.RandomString([]string{"operativo", "operativo", "operativo", "en_mantenimiento", "fuera_de_servicio", "dado_de_baja"}),
		}
		points := s.faker.Number(2, 4)
		for p := 0; p < points; p++ {
			plat, plng := s.jitter(lat, 0.0008), s.jitter(lng, 0.0008)
			if s.faker.Number(1, 10) == 1 {
				plat += 0.05
			}
			history = append(history, backend.Record{
				"id":       len(history) + 1,
				"equipo":   i + 1,
				"latitud":  plat,
				"longitud": plng,
				"fecha":    s.faker.DateRange(now.AddDate(0, -2, 0), now).Format(time.RFC3339),
			})
		}
	}
	tables["equipos"] = equipos
	tables[ResourceUbicaciones] = history

	equipo := func() string {
		if len(equipos) == 0 {
			return ""
		}
		e := equipos[s.faker.Number(0, len(equipos)-1)]
		return fmt.Sprintf("%s (%s)", e.String("nombre"), e.String("serie"))
	}

	rows = make([]backend.Record, s.count("solicitudes"))
	for i := range rows {
		cliente, _ := pick()
		rows[i] = backend.Record{
			"id":             i + 1,
			"cliente":        cliente.String("razonSocial"),
			"equipo":         equipo(),
			"tipo":           s.faker.RandomString([]string{"mantenimiento", "reparacion", "instalacion", "capacitacion"}),
			"prioridad":      s.faker.RandomString([]string{"alta", "media", "baja"}),
			"fechaSolicitud": s.day(-150*24*time.Hour, 0),
			"descripcion":    s.faker.Sentence(8),
			"estado":         s.faker.RandomString([]string{"pendiente", "asignada", "atendida", "cerrada"}),
		}
	}
	tables["solicitudes"] = rows

	rows = make([]backend.Record, s.count("visitas"))
	for i := range rows {
		cliente, _ := pick()
		rows[i] = backend.Record{
			"id":            i + 1,
			"cliente":       cliente.String("razonSocial"),
			"equipo":        equipo(),
			"tecnico":       s.faker.RandomString(tecnicos),
			"fecha":         s.day(-170*24*time.Hour, 30*24*time.Hour),
			"tipo":          s.faker.RandomString([]string{"preventiva", "preventiva", "correctiva", "instalacion", "diagnostico"}),
			"estado":        s.faker.RandomString([]string{"programada", "en_curso", "completada", "completada", "cancelada"}),
			"duracionHoras": s.faker.Number(1, 8),
			"observaciones": s.faker.Sentence(10),
		}
	}
	tables["visitas"] = rows

	rows = make([]backend.Record, s.count("ordenes"))
	for i := range rows {
		cliente, _ := pick()
		rows[i] = backend.Record{
			"id":              i + 1,
			"numero":          ordenNumber(i + 1),
			"cliente":         cliente.String("razonSocial"),
			"equipo":          equipo(),
			"tecnico":         s.faker.RandomString(tecnicos),
			"descripcion":     s.faker.Sentence(9),
			"prioridad":       s.faker.RandomString([]string{"alta", "media", "media", "baja"}),
			"estado":          s.faker.RandomString([]string{"abierta", "en_progreso", "cerrada", "cerrada"}),
			"fechaCreacion":   s.day(-170*24*time.Hour, 0),
			"fechaProgramada": s.day(0, 45*24*time.Hour),
			"costo":           float64(s.faker.Number(8, 240)) * 10000,
		}
	}
	tables["ordenes"] = rows

	rows = make([]backend.Record, s.count("cotizaciones"))
	for i := range rows {
		cliente, _ := pick()
		rows[i] = backend.Record{
			"id":           i + 1,
			"numero":       cotizacionNumber(i + 1),
			"cliente":      cliente.String("razonSocial"),
			"fecha":        s.day(-170*24*time.Hour, 0),
			"descripcion":  s.faker.Sentence(7),
			"valorTotal":   float64(s.faker.Number(50, 1500)) * 10000,
			"vigenciaDias": []int{15, 30, 60}[s.faker.Number(0, 2)],
			"estado":       s.faker.RandomString([]string{"borrador", "enviada", "aprobada", "aprobada", "rechazada"}),
		}
	}
	tables["cotizaciones"] = rows

	rows = make([]backend.Record, s.count("informes"))
	for i := range rows {
		generated := s.faker.DateRange(now.AddDate(0, -6, 0), now)
		rows[i] = backend.Record{
			"id":              i + 1,
			"titulo":          "Informe de mantenimiento " + generated.Format("2006-01"),
			"tipo":            s.faker.RandomString([]string{"mensual", "trimestral", "anual", "kpi"}),
			"periodo":         generated.Format("2006-01"),
			"autor":           s.faker.RandomString(tecnicos),
			"fechaGeneracion": generated.Format(time.RFC3339),
			"resumen":         s.faker.Sentence(14),
		}
	}
	tables["informes"] = rows

	rows = make([]backend.Record, s.count("bajas"))
	for i := range rows {
		rows[i] = backend.Record{
			"id":            i + 1,
			"equipo":        equipo(),
			"motivo":        s.faker.RandomString([]string{"obsolescencia", "dano_irreparable", "reemplazo", "venta"}),
			"fechaBaja":     s.day(-300*24*time.Hour, 0),
			"aprobadoPor":   s.faker.Name(),
			"estado":        s.faker.RandomString([]string{"solicitada", "aprobada", "aprobada", "rechazada"}),
			"observaciones": s.faker.Sentence(6),
		}
	}
	tables["bajas"] = rows

	rows = make([]backend.Record, s.count("auditoria"))
	for i := range rows {
		modulo := s.faker.RandomString([]string{"clientes", "equipos", "ordenes", "visitas", "cotizaciones"})
		accion := s.faker.RandomString([]string{"crear", "actualizar", "eliminar", "login"})
		rows[i] = backend.Record{
			"id":          i + 1,
			"fecha":       s.faker.DateRange(now.AddDate(0, -1, 0), now).Format(time.RFC3339),
			"usuario":     s.faker.RandomString([]string{"admin@demo.co", "tecnico@demo.co"}),
			"accion":      accion,
			"modulo":      modulo,
			"descripcion": auditDescription(accion, modulo, s.faker.Number(1, 90)),
		}
	}
	tables["auditoria"] = rows

	return tables
}

func ordenNumber(id int) string {
	return fmt.Sprintf("OT-%04d", id)
}

func cotizacionNumber(id int) string {
	return fmt.Sprintf("COT-%04d", id)
}

func auditDescription(accion, modulo string, id any) string {
	switch accion {
	case "login":
		return "Inicio de sesión"
	case "crear":
		return fmt.Sprintf("Creó el registro %v en %s", id, modulo)
	case "eliminar":
		return fmt.Sprintf("Eliminó el registro %v de %s", id, modulo)
	default:
		return fmt.Sprintf("Actualizó el registro %v en %s", id, modulo)
	}
}
