package middlewares_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/customdomains/middlewares"
	"github.com/dmitrymomot/customdomains/pkg/logger"
)

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	h := middlewares.RequestID(middlewares.WithRequestIDGenerator(func() string { return "generated" }))(
		http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			seen = logger.RequestIDFromContext(r.Context())
		}),
	)

	t.Run("generates", func(t *testing.T) {
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "generated", rec.Header().Get("X-Request-ID"))
		assert.Equal(t, "generated", seen)
	})

	t.Run("reuses incoming", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Correlation-ID", "abc")
		rec := serve(h, req)
		assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
		assert.Equal(t, "abc", seen)
	})
}

func TestRecover(t *testing.T) {
	t.Parallel()

	t.Run("renders panic error", func(t *testing.T) {
		t.Parallel()

		var got error
		h := middlewares.Recover(middlewares.WithRecoverErrorWriter(func(w http.ResponseWriter, _ *http.Request, err error) {
			got = err
			w.WriteHeader(http.StatusTeapot)
		}))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))

		rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
		require.True(t, middlewares.IsPanicError(got))

		var pe *middlewares.PanicError
		require.ErrorAs(t, got, &pe)
		assert.Equal(t, "boom", pe.Value)
		assert.NotEmpty(t, pe.Stack)
	})

	t.Run("without stack", func(t *testing.T) {
		t.Parallel()

		var got error
		h := middlewares.Recover(
			middlewares.WithRecoverDisablePrintStack(),
			middlewares.WithRecoverErrorWriter(func(w http.ResponseWriter, r *http.Request, err error) {
				got = err
				middlewares.DefaultErrorWriter(w, r, err)
			}),
		)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(errors.New("boom"))
		}))

		rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var pe *middlewares.PanicError
		require.ErrorAs(t, got, &pe)
		assert.Nil(t, pe.Stack)
	})

	t.Run("passes through", func(t *testing.T) {
		t.Parallel()

		h := middlewares.Recover()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		assert.Equal(t, http.StatusNoContent, serve(h, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	})
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	t.Run("writes timeout when handler gives up", func(t *testing.T) {
		t.Parallel()

		h := middlewares.Timeout(10*time.Millisecond, nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	})

	t.Run("keeps a written response", func(t *testing.T) {
		t.Parallel()

		h := middlewares.Timeout(10*time.Millisecond, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("sets a deadline", func(t *testing.T) {
		t.Parallel()

		var deadline bool
		h := middlewares.Timeout(time.Minute, nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			_, deadline = r.Context().Deadline()
		}))
		serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.True(t, deadline)
	})
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := middlewares.BearerToken("secret", nil)(ok)

	cases := map[string]int{
		"":              http.StatusUnauthorized,
		"Bearer wrong":  http.StatusUnauthorized,
		"Basic secret":  http.StatusUnauthorized,
		"Bearer secret": http.StatusNoContent,
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := serve(h, req)
		assert.Equal(t, want, rec.Code, header)
		if want == http.StatusUnauthorized {
			assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
		}
	}

	open := middlewares.BearerToken("", nil)(ok)
	assert.Equal(t, http.StatusNoContent, serve(open, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestLogging(t *testing.T) {
	t.Parallel()

	type obs struct {
		route, method string
		status        int
	}
	var got []obs

	r := chi.NewRouter()
	r.Use(middlewares.Logging(logger.NewNope(), func(route, method string, status int, _ time.Duration) {
		got = append(got, obs{route, method, status})
	}))
	r.Get("/v1/mappings/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	serve(r, httptest.NewRequest(http.MethodGet, "/v1/mappings/abc", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.Len(t, got, 2)
	assert.Equal(t, obs{"/v1/mappings/{id}", http.MethodGet, http.StatusAccepted}, got[0])
	assert.Equal(t, http.StatusNotFound, got[1].status)
}

func TestDefaultErrorWriter(t *testing.T) {
	t.Parallel()

	for err, want := range map[error]int{
		&middlewares.TimeoutError{Duration: time.Second}: http.StatusGatewayTimeout,
		middlewares.ErrUnauthorized:                      http.StatusUnauthorized,
		context.Canceled:                                 http.StatusInternalServerError,
	} {
		rec := httptest.NewRecorder()
		middlewares.DefaultErrorWriter(rec, httptest.NewRequest(http.MethodGet, "/", nil), err)
		assert.Equal(t, want, rec.Code)
	}
}
