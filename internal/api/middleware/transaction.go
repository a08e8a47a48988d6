package middleware

import (
	"bytes"
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-system/internal/core/ports"
)

// Transaction runs the rest of the chain inside one unit of work. The
// transactional context replaces the request context, so every repository
// call made by the handler joins it. A returned error rolls back.
//
// The handler writes into a buffer that reaches the client only after the
// commit succeeds; a failed commit discards it and the error is rendered
// by the HTTP error handler instead.
func Transaction(tx ports.Transactor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			out := res.Writer
			buf := newBufferedWriter()
			res.Writer = buf

			err := tx.WithinTransaction(req.Context(), func(ctx context.Context) error {
				c.SetRequest(req.WithContext(ctx))
				defer c.SetRequest(req)
				return next(c)
			})

			res.Writer = out
			if err != nil {
				res.Committed = false
				res.Status = http.StatusOK
				res.Size = 0
				return err
			}
			return buf.flushTo(out)
		}
	}
}

// bufferedWriter holds status, headers and body until flushTo.
type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: http.Header{}}
}

func (w *bufferedWriter) Header() http.Header { return w.header }

func (w *bufferedWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(b)
}

func (w *bufferedWriter) flushTo(out http.ResponseWriter) error {
	if w.status == 0 {
		return nil
	}
	dst := out.Header()
	for k, v := range w.header {
		dst[k] = v
	}
	out.WriteHeader(w.status)
	_, err := out.Write(w.body.Bytes())
	return err
}
