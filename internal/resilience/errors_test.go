package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"testing"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTransient_ExplicitTransientError(t *testing.T) {
	err := NewTransientError(errors.New("server overloaded"), 503)
	assert.True(t, IsTransient(err))
}

func TestIsTransient_WrappedTransientError(t *testing.T) {
	inner := NewTransientError(errors.New("rate limited"), 429)
	wrapped := fmt.Errorf("api call failed: %w", inner)
	assert.True(t, IsTransient(wrapped))
}

func TestIsTransient_ErisWrapped(t *testing.T) {
	inner := NewTransientError(errors.New("bad gateway"), 502)
	assert.True(t, IsTransient(eris.Wrap(inner, "ecoleta: create point")))
}

func TestIsTransient_NilError(t *testing.T) {
	assert.False(t, IsTransient(nil))
}

func TestIsTransient_RegularError(t *testing.T) {
	assert.False(t, IsTransient(errors.New("invalid input: missing field")))
}

func TestIsTransient_ConnectionReset(t *testing.T) {
	err := fmt.Errorf("write tcp: %w", syscall.ECONNRESET)
	assert.True(t, IsTransient(err))
}

func TestIsTransient_ConnectionRefused(t *testing.T) {
	err := fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)
	assert.True(t, IsTransient(err))
}

func TestIsTransient_NetworkTimeout(t *testing.T) {
	err := &net.DNSError{IsTimeout: true, Err: "timeout"}
	assert.True(t, IsTransient(err))
}

func TestIsTransient_StringPatterns(t *testing.T) {
	for _, msg := range []string{
		"read: connection reset by peer",
		"dial tcp: lookup api: no such host",
		"net/http: TLS handshake timeout",
	} {
		assert.True(t, IsTransient(errors.New(msg)), msg)
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code int
		want bool
	}{
		{200, false},
		{400, false},
		{404, false},
		{408, true},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(fmt.Sprintf("%d", tt.code), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTransientHTTPStatus(tt.code))
		})
	}
}

func TestCheckStatus(t *testing.T) {
	assert.NoError(t, CheckStatus("ecoleta", 200, nil))
	assert.NoError(t, CheckStatus("ecoleta", 201, nil))

	err := CheckStatus("ecoleta", 400, []byte("bad payload"))
	require.Error(t, err)
	assert.False(t, IsTransient(err))
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 400, se.StatusCode)
	assert.Equal(t, "ecoleta: unexpected status 400: bad payload", err.Error())

	err = CheckStatus("ibge", 503, nil)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "ibge: unexpected status 503", err.Error())
}

func TestCheckStatus_TruncatesBody(t *testing.T) {
	err := CheckStatus("ecoleta", 422, []byte(strings.Repeat("x", 1000)))
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Len(t, se.Body, 200)
}

func TestCheckStatus_TruncatesOnRuneBoundary(t *testing.T) {
	body := "x" + strings.Repeat("ã", 500)
	err := CheckStatus("ecoleta", 422, []byte(body))
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.True(t, utf8.ValidString(se.Body))
	assert.Len(t, se.Body, 199)
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage("carregar os itens", nil))

	msg := UserMessage("carregar os itens", NewTransientError(errors.New("503"), 503))
	assert.Contains(t, msg, "serviço indisponível")

	msg = UserMessage("cadastrar o ponto", CheckStatus("ecoleta", 400, nil))
	assert.Contains(t, msg, "respondeu 400")

	msg = UserMessage("carregar as cidades", eris.Wrap(context.Canceled, "ibge: cities"))
	assert.Contains(t, msg, "cancelada")

	msg = UserMessage("cadastrar o ponto", errors.New("decode"))
	assert.Equal(t, "Não foi possível cadastrar o ponto.", msg)
}
