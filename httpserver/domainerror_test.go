// File: httpserver/domainerror_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrorHasHTTPCode(t *testing.T) {
	d := NewDomainError(http.StatusTeapot, "no tea")
	assert.True(t, d.HasHTTPCode())

	d2 := NewDomainError(1, "out of HTTP range")
	assert.False(t, d2.HasHTTPCode())
}

func TestDomainErrorWrapsCause(t *testing.T) {
	cause := errors.New("underlying failure")
	d := &DomainError{Code: http.StatusInternalServerError, Msg: "wrapped", Err: cause}

	assert.ErrorIs(t, d, cause)
	assert.Equal(t, fmt.Sprintf("wrapped: %v", cause), d.Error())
}

func TestDomainErrorWithoutCauseUsesMessage(t *testing.T) {
	d := NewDomainError(http.StatusBadRequest, "bad input")
	assert.Equal(t, "bad input", d.Error())
	assert.Nil(t, d.Unwrap())
}
