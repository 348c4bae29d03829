package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapsWrappedSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
		typ    string
	}{
		{fmt.Errorf("%w: message too long", ErrValidation), http.StatusBadRequest, "validation_error"},
		{fmt.Errorf("%w: model foo", ErrConfiguration), http.StatusBadRequest, "configuration_error"},
		{fmt.Errorf("%w: 10 per minute", ErrRateLimited), http.StatusTooManyRequests, "rate_limit_error"},
		{fmt.Errorf("bedrock: %w", ErrUpstream), http.StatusInternalServerError, "upstream_error"},
		{fmt.Errorf("%w: put object", ErrStorage), http.StatusInternalServerError, "storage_error"},
		{fmt.Errorf("%w: version 3", ErrConflict), http.StatusConflict, "conflict"},
		{ErrNotFound, http.StatusNotFound, "not_found"},
		{errors.New("boom"), http.StatusInternalServerError, "server_error"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, Status(tc.err), tc.err.Error())
		assert.Equal(t, tc.typ, Type(tc.err), tc.err.Error())
	}
	assert.Equal(t, http.StatusOK, Status(nil))
}
