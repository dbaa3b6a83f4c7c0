package application

import (
	"strings"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"

	"github.com/seancfoley/ipaddress-go/ipaddr"
)

// Identify deriva a identidade do cliente. Ordem:
//
//  1. usuário autenticado -> "user:<id>"
//  2. primeiro IP do forwarded-for (cliente original) -> "ip:<addr>"
//  3. real-ip -> "ip:<addr>"
//  4. "ip:unknown"
//
// Endereço que não faz parse é ignorado e a busca segue para a próxima fonte.
// Determinística e sem efeitos colaterais.
func Identify(attrs domain.RequestAttributes) domain.Identity {
	if id := strings.TrimSpace(attrs.UserID); id != "" {
		return domain.Identity("user:" + id)
	}

	if xff := attrs.ForwardedFor; xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if addr, ok := normalizeAddr(first); ok {
			return domain.Identity("ip:" + addr)
		}
	}

	if addr, ok := normalizeAddr(attrs.RealIP); ok {
		return domain.Identity("ip:" + addr)
	}

	return domain.UnknownIdentity
}

func normalizeAddr(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	addr, err := ipaddr.NewIPAddressString(raw).ToAddress()
	// wildcard/faixa ("*", "10.0.0.*") não identifica um cliente
	if err != nil || addr == nil || addr.IsMultiple() {
		return "", false
	}
	return addr.WithoutPrefixLen().ToCanonicalString(), true
}
