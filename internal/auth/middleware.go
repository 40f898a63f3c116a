package auth

import (
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	"github.com/labstack/echo/v4"
)

const principalKey = "principal"

// RequireRoles rejects the request unless the caller holds one of roles.
func (g *Gate) RequireRoles(roles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			p, err := g.Authorize(c.Request().Context(), header, roles...)
			if err != nil {
				return err
			}
			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// PrincipalFrom returns the caller stored by RequireRoles.
func PrincipalFrom(c echo.Context) *domain.Principal {
	p, _ := c.Get(principalKey).(*domain.Principal)
	return p
}
