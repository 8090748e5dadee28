package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMap(t *testing.T) {
	assert.NoError(t, Map(nil))
	assert.ErrorIs(t, Map(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, Map(context.DeadlineExceeded), ErrTransientStore)
	assert.ErrorIs(t, Map(gorm.ErrDuplicatedKey), ErrConflict)

	plain := fmt.Errorf("boom")
	assert.Equal(t, plain, Map(plain))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{NotFound("user %d", 7), http.StatusNotFound},
		{InvalidArgument("bad offset"), http.StatusBadRequest},
		{Conflict("swipe %d->%d is frozen", 1, 2), http.StatusConflict},
		{Transient(fmt.Errorf("timeout")), http.StatusServiceUnavailable},
		{Invariant("pair key %s has no row", "1:2"), http.StatusInternalServerError},
		{fmt.Errorf("unclassified"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), "err=%v", tc.err)
	}
}
