package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jhoicas/afipws-caea/internal/application/dto"
	"github.com/jhoicas/afipws-caea/pkg/jwt"
)

const localPrincipal = "principal"

// Principal operador autenticado y empresa sobre la que opera.
type Principal struct {
	UserID    string
	CompanyID string
}

// AuthMiddleware valida el Bearer Token y exige una empresa en el token: todas
// las operaciones AFIP actúan sobre los comprobantes de esa empresa (su CUIT y
// su certificado).
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, errResp := bearerToken(c.Get(fiber.HeaderAuthorization))
		if errResp != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(errResp)
		}
		userID, companyID, err := jwt.Parse(jwtSecret, token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		if companyID == "" {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "NO_COMPANY", Message: "el token no está asociado a una empresa"})
		}
		if _, err := uuid.Parse(companyID); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "company_id inválido en el token"})
		}
		c.Locals(localPrincipal, Principal{UserID: userID, CompanyID: companyID})
		return c.Next()
	}
}

func bearerToken(header string) (string, *dto.ErrorResponse) {
	if header == "" {
		return "", &dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"}
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", &dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"}
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", &dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"}
	}
	return token, nil
}

// PrincipalFrom devuelve el operador autenticado; ok es false fuera de AuthMiddleware.
func PrincipalFrom(c *fiber.Ctx) (Principal, bool) {
	p, ok := c.Locals(localPrincipal).(Principal)
	return p, ok
}

// GetUserID devuelve el UserID del token ("" sin autenticar).
func GetUserID(c *fiber.Ctx) string {
	p, _ := PrincipalFrom(c)
	return p.UserID
}

// GetCompanyID devuelve la empresa del token ("" sin autenticar).
func GetCompanyID(c *fiber.Ctx) string {
	p, _ := PrincipalFrom(c)
	return p.CompanyID
}
