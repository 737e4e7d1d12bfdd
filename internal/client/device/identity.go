// Package device provee la identidad estable por instalación. Cada request
// saliente (OTP, grants y llamadas firmadas) debe llevar exactamente el mismo
// par device id / fingerprint; un par distinto dentro de la misma sesión es
// una violación de protocolo que el servidor rechaza.
package device

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	tokens "github.com/dropDatabas3/axel/internal/security/token"
)

// Identity es el par inmutable que identifica la instalación.
type Identity struct {
	DeviceID    string `json:"device_id"`
	Fingerprint string `json:"fingerprint"`
}

// Load lee la identidad persistida en path, o la genera y persiste en el
// primer uso. Si no puede cargarse ni generarse, la construcción del cliente
// falla: no existe modo anónimo.
func Load(path string) (Identity, error) {
	if path == "" {
		return Identity{}, fmt.Errorf("device: identity file path vacío")
	}

	b, err := os.ReadFile(path)
	if err == nil {
		var id Identity
		if err := json.Unmarshal(b, &id); err != nil {
			return Identity{}, fmt.Errorf("device: identidad corrupta en %s: %w", path, err)
		}
		if id.DeviceID == "" || id.Fingerprint == "" {
			return Identity{}, fmt.Errorf("device: identidad incompleta en %s", path)
		}
		return id, nil
	}
	if !os.IsNotExist(err) {
		return Identity{}, fmt.Errorf("device: leer %s: %w", path, err)
	}

	id, err := generate()
	if err != nil {
		return Identity{}, err
	}
	if err := persist(path, id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

func generate() (Identity, error) {
	seed, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return Identity{}, fmt.Errorf("device: generar fingerprint: %w", err)
	}
	return Identity{
		DeviceID:    uuid.NewString(),
		Fingerprint: tokens.SHA256Hex(seed),
	}, nil
}

// persist escribe de forma atómica (tmp + rename) con permisos 0600.
func persist(path string, id Identity) error {
	b, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("device: marshal identidad: %w", err)
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("device: crear %s: %w", dir, err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("device: escribir %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("device: rename %s: %w", tmp, err)
	}
	return nil
}
