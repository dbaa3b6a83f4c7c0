package application

import (
	"testing"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"

	"github.com/stretchr/testify/assert"
)

func TestIdentify(t *testing.T) {
	cases := []struct {
		name  string
		attrs domain.RequestAttributes
		want  domain.Identity
	}{
		{
			name:  "authenticated user wins",
			attrs: domain.RequestAttributes{UserID: " 42 ", ForwardedFor: "1.2.3.4", RealIP: "5.6.7.8"},
			want:  "user:42",
		},
		{
			name:  "left-most forwarded-for entry",
			attrs: domain.RequestAttributes{ForwardedFor: "1.2.3.4, 10.0.0.1, 10.0.0.2", RealIP: "5.6.7.8"},
			want:  "ip:1.2.3.4",
		},
		{
			name:  "real ip when no forwarded-for",
			attrs: domain.RequestAttributes{RealIP: " 192.168.1.1 "},
			want:  "ip:192.168.1.1",
		},
		{
			name:  "ipv6 is normalised",
			attrs: domain.RequestAttributes{ForwardedFor: "2001:DB8:0:0:0:0:0:1"},
			want:  "ip:2001:db8::1",
		},
		{
			name:  "malformed forwarded-for falls through to real ip",
			attrs: domain.RequestAttributes{ForwardedFor: "not-an-ip, 1.2.3.4", RealIP: "5.6.7.8"},
			want:  "ip:5.6.7.8",
		},
		{
			name:  "malformed everything is unknown",
			attrs: domain.RequestAttributes{ForwardedFor: "garbage", RealIP: "also garbage"},
			want:  domain.UnknownIdentity,
		},
		{
			name:  "wildcard is not an identity",
			attrs: domain.RequestAttributes{ForwardedFor: "*"},
			want:  domain.UnknownIdentity,
		},
		{
			name:  "nothing present",
			attrs: domain.RequestAttributes{},
			want:  domain.UnknownIdentity,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Identify(tc.attrs))
		})
	}
}

func TestIdentify_Deterministic(t *testing.T) {
	attrs := domain.RequestAttributes{ForwardedFor: "203.0.113.7, 10.0.0.1"}
	assert.Equal(t, Identify(attrs), Identify(attrs))
}
