package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/afipws-caea/internal/domain/repository"
)

var _ repository.ConfigParameterRepository = (*ConfigParameterRepo)(nil)

// ConfigParameterRepo parámetros clave/valor (tabla config_parameters).
type ConfigParameterRepo struct {
	q Querier
}

func NewConfigParameterRepository(q Querier) *ConfigParameterRepo {
	return &ConfigParameterRepo{q: q}
}

// GetParam devuelve def si la clave no está definida.
func (r *ConfigParameterRepo) GetParam(ctx context.Context, key, def string) (string, error) {
	var value string
	err := r.q.QueryRow(ctx, `SELECT value FROM config_parameters WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if isNoRows(err) {
			return def, nil
		}
		return "", fmt.Errorf("get config parameter %s: %w", key, err)
	}
	return value, nil
}
