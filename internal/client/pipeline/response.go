package pipeline

// Response es el envelope descifrado de una llamada al API.
type Response struct {
	// Body es el JSON plano completo ya descifrado.
	Body map[string]any
	// Raw conserva los bytes originales de la respuesta para diagnóstico.
	Raw []byte
}

// Status devuelve el campo "status" del envelope ("SUCCESS" en el caso feliz).
func (r Response) Status() string {
	s, _ := r.Body["status"].(string)
	return s
}

// Success reporta si el backend marcó la operación como exitosa.
func (r Response) Success() bool {
	return r.Status() == "SUCCESS"
}

// Data devuelve el objeto "data" del envelope, o nil si no está.
func (r Response) Data() map[string]any {
	d, _ := r.Body["data"].(map[string]any)
	return d
}

// ErrorMessage devuelve el error de negocio reportado por el backend con su
// mensaje original intacto, o "" si no hay.
func (r Response) ErrorMessage() string {
	if e, ok := r.Body["error"].(string); ok {
		return e
	}
	if e, ok := r.Body["error_description"].(string); ok {
		return e
	}
	return ""
}
