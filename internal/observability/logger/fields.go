package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - API SALIENTE
// =================================================================================

// RequestID crea un campo para el ID del request saliente.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Endpoint crea un campo para el path del API remoto.
func Endpoint(v string) zap.Field {
	return zap.String("endpoint", v)
}

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Duration crea un campo para la duración de la llamada.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - NEGOCIO
// =================================================================================

// Contact crea un campo para el MSISDN (pasar siempre enmascarado).
func Contact(v string) zap.Field {
	return zap.String("contact", v)
}

// FamilyCode crea un campo para el código de familia de paquetes.
func FamilyCode(v string) zap.Field {
	return zap.String("family_code", v)
}

// OptionCode crea un campo para el código de opción de paquete.
func OptionCode(v string) zap.Field {
	return zap.String("option_code", v)
}

// OrderID crea un campo para el ID de una transacción de pago.
func OrderID(v string) zap.Field {
	return zap.String("order_id", v)
}

// MigrationType crea un campo para el eje migration_type del catálogo.
func MigrationType(v string) zap.Field {
	return zap.String("migration_type", v)
}

// Enterprise crea un campo para el eje is_enterprise del catálogo.
func Enterprise(v bool) zap.Field {
	return zap.Bool("is_enterprise", v)
}

// Attempt crea un campo para el número de intento de una búsqueda.
func Attempt(v int) zap.Field {
	return zap.Int("attempt", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Layer crea un campo para la capa (cmd, pipeline, service).
func Layer(v string) zap.Field {
	return zap.String("layer", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Count crea un campo para un conteo.
func Count(v int) zap.Field {
	return zap.Int("count", v)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

// Bool crea un campo bool genérico.
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}
