package repository

import "context"

// ConfigParameterRepository almacén clave/valor de parámetros globales.
type ConfigParameterRepository interface {
	// GetParam devuelve def si la clave no existe.
	GetParam(ctx context.Context, key, def string) (string, error)
}
