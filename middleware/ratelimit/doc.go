// Package ratelimit fornece adapters HTTP (net/http) para o limitador por
// classe de endpoint e para o limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (política, identidade, decisão, admin) sem net/http
//   - infra: implementações concretas (memória, redis, failover, yaml, stats)
//   - ratelimit (este pacote): middlewares HTTP, extração de atributos,
//     classificação de rota e tradução do Verdict para status/headers
//
// Fluxo por request:
//
//  1. Extrai atributos (usuário, X-Forwarded-For, X-Real-IP, tier)
//  2. Resolve a classe (explícita ou pela rota)
//  3. Chama application.Service para obter o Verdict
//  4. Se negado, responde 429 com corpo JSON e não chama o próximo handler
//  5. Se permitido, grava os headers X-RateLimit-* e chama o próximo handler
//
// Variáveis de ambiente do binário gateway (cmd/gateway) controlam o comportamento,
// como REDIS_ADDR, RATE_POLICY_FILE, RATE_ROUTE_CLASSES e RATE_LIMIT_BYPASS.
package ratelimit
