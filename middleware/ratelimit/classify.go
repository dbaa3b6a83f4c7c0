package ratelimit

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"
)

// ClassFunc decide a classe de endpoint de uma request.
type ClassFunc func(r *http.Request) domain.ClassKey

// StaticClass devolve sempre a mesma classe (rota que já sabe quem é).
func StaticClass(class domain.ClassKey) ClassFunc {
	return func(*http.Request) domain.ClassKey { return class }
}

// PrefixClassifier mapeia prefixo de path -> classe. Vence o prefixo mais
// longo; sem casamento, "general".
func PrefixClassifier(routes map[string]domain.ClassKey) ClassFunc {
	prefixes := make([]string, 0, len(routes))
	for p := range routes {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })

	return func(r *http.Request) domain.ClassKey {
		path := r.URL.Path
		for _, p := range prefixes {
			if strings.HasPrefix(path, p) {
				return routes[p]
			}
		}
		return domain.ClassGeneral
	}
}

// ParseRouteClasses lê "prefixo=classe,prefixo=classe".
func ParseRouteClasses(raw string) (map[string]domain.ClassKey, error) {
	routes := make(map[string]domain.ClassKey)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		prefix, class, ok := strings.Cut(item, "=")
		prefix, class = strings.TrimSpace(prefix), strings.TrimSpace(class)
		if !ok || prefix == "" || class == "" {
			return nil, fmt.Errorf("route class must follow PREFIX=CLASS: %q", item)
		}
		if !strings.HasPrefix(prefix, "/") {
			return nil, fmt.Errorf("route prefix must start with '/': %q", prefix)
		}
		routes[prefix] = domain.ClassKey(class)
	}
	return routes, nil
}
