package ratelimit

import (
	"net/http"
	"strings"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"
)

const (
	DefaultUserHeader = "X-User-ID"
	DefaultTierHeader = "X-User-Tier"
)

// AttributesFunc extrai da request o que o limitador precisa.
type AttributesFunc func(r *http.Request) domain.RequestAttributes

// DefaultAttributesFunc lê o usuário autenticado e o tier dos headers
// informados e os headers de proxy X-Forwarded-For / X-Real-IP.
//
// Usuário e tier só são confiáveis se uma camada de auth à frente sobrescreve
// esses headers; vindo direto do cliente, qualquer um se declara "enterprise".
func DefaultAttributesFunc(userHeader, tierHeader string) AttributesFunc {
	if userHeader == "" {
		userHeader = DefaultUserHeader
	}
	if tierHeader == "" {
		tierHeader = DefaultTierHeader
	}
	return func(r *http.Request) domain.RequestAttributes {
		return domain.RequestAttributes{
			UserID:       strings.TrimSpace(r.Header.Get(userHeader)),
			ForwardedFor: r.Header.Get("X-Forwarded-For"),
			RealIP:       r.Header.Get("X-Real-IP"),
			Tier:         domain.Tier(strings.ToLower(strings.TrimSpace(r.Header.Get(tierHeader)))),
			Method:       r.Method,
			Path:         r.URL.Path,
		}
	}
}
