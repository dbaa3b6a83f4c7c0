// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - LocalStore: contadores em memória por instância, com janitor periódico
//   - RedisStore: contadores compartilhados entre instâncias (go-redis + Lua)
//   - FailoverStore: decorator que cai para o LocalStore quando o redis falha
//   - LoadPolicyFile: políticas por classe/tier em YAML
//   - *StatsStore: estatísticas dos vereditos (memória, redis, prometheus)
//   - ChanPool: semáforo simples para limite de concorrência
package infra
