// Package application contém os casos de uso do limitador: resolução de
// política, identificação do cliente, a decisão (janela fixa + bloqueio) e as
// operações de admin (status/reset), além do limite de concorrência.
//
// Ele depende apenas do pacote domain e não conhece net/http nem redis.
// Ex.: Service.Check(ctx, identity, class, tier) retorna um Verdict.
package application
