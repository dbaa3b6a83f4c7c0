// Package domain define contratos e tipos de domínio do limitador:
// políticas por classe de endpoint, identidade do cliente, registro de
// contagem (janela + bloqueio) e o veredito devolvido a cada checagem.
//
// Este pacote não depende de net/http nem de implementações concretas
// (redis, memória). A intenção é permitir testes de unidade puros e
// desacoplar regras de negócio de detalhes de infraestrutura.
package domain
