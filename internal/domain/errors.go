package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrForbidden    = errors.New("acceso denegado")

	// ErrConfiguration: el diario no tiene web service AFIP configurado. Lo corrige un operador.
	ErrConfiguration = errors.New("configuración AFIP incompleta")
	// ErrNoActiveCAEA: la empresa no tiene un CAEA vigente.
	ErrNoActiveCAEA = errors.New("la empresa no tiene CAEA activo")
	// ErrMissingTimestamp: se intentó informar un comprobante CAEA que nunca fue sellado.
	ErrMissingTimestamp = errors.New("comprobante CAEA sin fecha/hora de generación")
	// ErrAfipValidation: rechazo de AFIP o falla de transporte.
	ErrAfipValidation = errors.New("error de validación AFIP")
)

// ConfigurationError indica qué comprobante no pudo procesarse por falta de web service.
type ConfigurationError struct {
	InvoiceID string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("si usa diarios electrónicos (comprobante %s) debe configurar el WS AFIP en el diario", e.InvoiceID)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// FailureKind clasifica el origen de un AfipValidationError.
type FailureKind string

const (
	FailureTransport FailureKind = "transport" // SOAP fault (faultcode + faultstring)
	FailureRemote    FailureKind = "remote"    // excepción ya interpretada por la sesión
	FailureUnknown   FailureKind = "unknown"   // cualquier otro error de la llamada
	FailureRejected  FailureKind = "rejected"  // AFIP respondió pero no aprobó
)

// AfipValidationError lleva el diagnóstico textual de AFIP.
type AfipValidationError struct {
	Kind    FailureKind
	Message string
}

func (e *AfipValidationError) Error() string {
	return "Error de validación AFIP. " + e.Message
}

func (e *AfipValidationError) Unwrap() error { return ErrAfipValidation }
