package flux

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// router dispatches requests to registered fluxes.
type router struct {
	server *Server
	mux    *http.ServeMux
}

func newRouter(s *Server) *router {
	rt := &router{
		server: s,
		mux:    http.NewServeMux(),
	}
	rt.mux.HandleFunc("/", notFound)
	return rt
}

// handle...
func (rt *router) handle(pattern string, h http.Handler) {
	rt.mux.Handle(pattern, h)
}

// ServeHTTP...
func (rt *router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if err := recover(); err != nil {
			rt.handlePanic(w, r, err)
		}
	}()
	rt.mux.ServeHTTP(w, r)
}

var (
	panicResponse    = []byte(fmt.Sprintf(`{"code": "%s", "status": %d, "message": "%s"}`, "internal", http.StatusInternalServerError, "Something went wrong."))
	notFoundResponse = []byte(fmt.Sprintf(`{"code": "%s", "status": %d, "message": "%s"}`, "not_found", http.StatusNotFound, "Not found."))
)

// handlePanic...
func (rt *router) handlePanic(w http.ResponseWriter, r *http.Request, v interface{}) {
	rt.server.logger.Error("A panic occurred.",
		slog.Any("error", v),
		slog.String("request_path", r.URL.Path),
		slog.String("trace", string(debug.Stack())))
	w.Header().Set(HeaderContentType, ContentTypeApplicationJSON)
	w.WriteHeader(http.StatusInternalServerError)
	w.Write(panicResponse)
}

// notFound...
func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(HeaderContentType, ContentTypeApplicationJSON)
	w.WriteHeader(http.StatusNotFound)
	w.Write(notFoundResponse)
}
