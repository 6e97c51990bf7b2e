package xinbound_test

import (
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtracer/pkg/trace/xinbound"
)

func TestMiddleware_RecordsStatus(t *testing.T) {
	tracer, tr := setup(t)

	h := xinbound.New(tr).Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("queued"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	tags := onlySpan(t, tracer).Tags()
	assert.Equal(t, http.StatusAccepted, tags["http.status_code"])
	assert.Equal(t, "OK", tags["otel.status_code"])
}

func TestMiddleware_ImplicitOK(t *testing.T) {
	tracer, tr := setup(t)

	h := xinbound.New(tr).Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hi"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, onlySpan(t, tracer).Tags()["http.status_code"])
}

func TestMiddleware_PanicRepanicked(t *testing.T) {
	tracer, tr := setup(t)
	boom := errors.New("boom")

	h := xinbound.New(tr).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(boom)
	}))
	assert.PanicsWithError(t, "boom", func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})

	tags := onlySpan(t, tracer).Tags()
	assert.Equal(t, "errors.errorString", tags["exception.class"])
	assert.NotContains(t, tags, "otel.status_code")
}

func TestHandlerFunc_ErrorRendered(t *testing.T) {
	tracer, tr := setup(t)

	h := xinbound.New(tr).HandlerFunc(func(http.ResponseWriter, *http.Request) error {
		return &httpError{status: http.StatusForbidden}
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secret", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	tags := onlySpan(t, tracer).Tags()
	assert.Equal(t, http.StatusForbidden, tags["http.status_code"])
	assert.Equal(t, "Forbidden", tags["exception.message"])
}

func TestHandlerFunc_PlainErrorIs500(t *testing.T) {
	tracer, tr := setup(t)

	h := xinbound.New(tr).HandlerFunc(func(http.ResponseWriter, *http.Request) error {
		return errors.New("oops")
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "oops", onlySpan(t, tracer).Tags()["exception.message"])
}

func TestHandlerFunc_CustomErrorWriter(t *testing.T) {
	_, tr := setup(t)

	ew := func(w http.ResponseWriter, _ *http.Request, err error) int {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(err.Error()))
		return http.StatusTeapot
	}
	h := xinbound.New(tr, xinbound.WithErrorWriter(ew)).HandlerFunc(func(http.ResponseWriter, *http.Request) error {
		return errors.New("short and stout")
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
}

func TestHandlerFunc_Success(t *testing.T) {
	tracer, tr := setup(t)

	h := xinbound.New(tr).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) error {
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/x", nil))

	tags := onlySpan(t, tracer).Tags()
	assert.Equal(t, http.StatusNoContent, tags["http.status_code"])
	assert.Equal(t, "OK", tags["otel.status_code"])
}

var errNoConn = errors.New("no connection")

// hijackRecorder 在 ResponseRecorder 之上实现 Hijacker 与 ReaderFrom
type hijackRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
	readFrom bool
}

func (w *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	w.hijacked = true
	return nil, nil, errNoConn
}

func (w *hijackRecorder) ReadFrom(src io.Reader) (int64, error) {
	w.readFrom = true
	return io.Copy(w.ResponseRecorder, src)
}

func TestMiddleware_PreservesOptionalInterfaces(t *testing.T) {
	t.Run("Flusher", func(t *testing.T) {
		tracer, tr := setup(t)
		h := xinbound.New(tr).Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			f, ok := w.(http.Flusher)
			require.True(t, ok)
			_, _ = w.Write([]byte("data: 1\n\n"))
			f.Flush()
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))

		assert.True(t, rec.Flushed)
		assert.Equal(t, http.StatusOK, onlySpan(t, tracer).Tags()["http.status_code"])
	})

	t.Run("Hijacker", func(t *testing.T) {
		_, tr := setup(t)
		w := &hijackRecorder{ResponseRecorder: httptest.NewRecorder()}
		h := xinbound.New(tr).Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			_, _, err := hj.Hijack()
			assert.ErrorIs(t, err, errNoConn)
		}))
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))

		assert.True(t, w.hijacked)
	})

	t.Run("ReaderFrom", func(t *testing.T) {
		tracer, tr := setup(t)
		w := &hijackRecorder{ResponseRecorder: httptest.NewRecorder()}
		h := xinbound.New(tr).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) error {
			rf, ok := w.(io.ReaderFrom)
			require.True(t, ok)
			_, err := rf.ReadFrom(strings.NewReader("payload"))
			return err
		})
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/download", nil))

		assert.True(t, w.readFrom)
		assert.Equal(t, "payload", w.Body.String())
		assert.Equal(t, http.StatusOK, onlySpan(t, tracer).Tags()["http.status_code"])
	})
}
