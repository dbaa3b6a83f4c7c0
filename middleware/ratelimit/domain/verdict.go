package domain

import "time"

// Identity é a chave estável do cliente: "user:<id>", "ip:<addr>" ou "ip:unknown".
type Identity string

const UnknownIdentity Identity = "ip:unknown"

// RequestAttributes é o mínimo que o limitador precisa saber de uma requisição.
// Propositalmente "agnóstico de HTTP".
type RequestAttributes struct {
	UserID       string
	ForwardedFor string
	RealIP       string
	Tier         Tier

	Method string
	Path   string
}

// Verdict é o resultado de uma checagem. Não é persistido.
type Verdict struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter só é preenchido quando negado. Se 0, não há recomendação.
	RetryAfter time.Duration
}

// Status é a visão de leitura usada pelo admin/suporte.
type Status struct {
	Identity     Identity  `json:"identity"`
	Class        ClassKey  `json:"class"`
	Count        int64     `json:"count"`
	Limit        int       `json:"limit"`
	Remaining    int       `json:"remaining"`
	ResetAt      time.Time `json:"resetAt"`
	Blocked      bool      `json:"blocked"`
	BlockedUntil time.Time `json:"blockedUntil,omitzero"`
}
