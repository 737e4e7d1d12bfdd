// Package axtime produce las dos codificaciones de tiempo que el backend
// acepta. Todas las marcas van fijas en UTC+7; el backend rechaza otros
// offsets.
package axtime

import "time"

// Zone es la única zona válida para el protocolo.
var Zone = time.FixedZone("GMT+7", 7*60*60)

const (
	extendedLayout = "2006-01-02T15:04:05.000-07:00"
	compactLayout  = "2006-01-02T15:04:05.000-0700"

	// headerSkew es el atraso aplicado al timestamp de transporte en el
	// submit de OTP. Tolerancia de clock-skew del protocolo; no cambiar.
	headerSkew = 5 * time.Minute
)

// Extended formatea t como 2006-01-02T15:04:05.000+07:00 (offset con dos
// puntos). Es el marcador x-request-at de las llamadas genéricas.
func Extended(t time.Time) string {
	return t.In(Zone).Format(extendedLayout)
}

// Compact formatea t con el offset sin dos puntos (+0700). Es la forma usada
// por la firma del submit de OTP y su header de transporte.
func Compact(t time.Time) string {
	return t.In(Zone).Format(compactLayout)
}

// SignAndHeader devuelve el par (timestamp de firma, timestamp de header)
// para el submit de OTP: el header va exactamente cinco minutos atrás del
// instante firmado.
func SignAndHeader(now time.Time) (forSign, forHeader string) {
	return Compact(now), Compact(now.Add(-headerSkew))
}

// FromUnix interpreta un epoch en segundos emitido por el servidor y lo
// devuelve anclado a la zona del protocolo.
func FromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).In(Zone)
}
