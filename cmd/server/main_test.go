package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayHostForListenAddr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		addr string
		want string
	}{
		{name: "port only", addr: ":8080", want: "localhost:8080"},
		{name: "explicit ipv4", addr: "127.0.0.1:8080", want: "127.0.0.1:8080"},
		{name: "bind-all ipv4", addr: "0.0.0.0:8080", want: "localhost:8080"},
		{name: "bind-all ipv6", addr: "[::]:8080", want: "localhost:8080"},
		{name: "ipv6 loopback", addr: "[::1]:8080", want: "[::1]:8080"},
		{name: "surrounding whitespace", addr: " localhost:9090 ", want: "localhost:9090"},
		{name: "whitespace port only", addr: "  :7070  ", want: "localhost:7070"},
		{name: "empty falls back", addr: "", want: "localhost:8080"},
		{name: "blank falls back", addr: "   ", want: "localhost:8080"},
		{name: "no port passes through", addr: "localhost", want: "localhost"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, displayHostForListenAddr(tt.addr))
		})
	}
}
