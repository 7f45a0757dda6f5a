package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Widgets/pkg/kit"
)

const (
	BasePath = "/v1/widgets"

	defaultMaxBody = 1 << 20
	readyTimeout   = 1 * time.Second
)

type Server struct {
	Service *Service
	Log     *zap.Logger

	MaxBodyBytes int64
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.ready)

	r.Route(BasePath, func(rr chi.Router) {
		rr.Get("/", s.list)
		rr.Post("/", s.create)
		rr.Post("/bulk", s.createBulk)
		rr.Get("/{name}", s.get)
		rr.Put("/{name}", s.update)
		rr.Delete("/{name}", s.delete)
	})

	return r
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.Service.Ping(ctx); err != nil {
		s.logger().Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	widgets, err := s.Service.GetAllWidgets(r.Context())
	if err != nil {
		s.fail(w, r, "list widgets", "", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, widgets)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var in Widget
	if err := s.decodeBody(w, r, &in); err != nil {
		s.fail(w, r, "create widget", "", err)
		return
	}
	s.createAll(w, r, []Widget{in})
}

func (s *Server) createBulk(w http.ResponseWriter, r *http.Request) {
	var in []Widget
	if err := s.decodeBody(w, r, &in); err != nil {
		s.fail(w, r, "create widgets", "", err)
		return
	}
	if in == nil {
		in = []Widget{}
	}
	s.createAll(w, r, in)
}

func (s *Server) createAll(w http.ResponseWriter, r *http.Request, in []Widget) {
	created, err := s.Service.CreateWidgets(r.Context(), in)
	if err != nil {
		s.fail(w, r, "create widgets", "", err)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r)
	if err != nil {
		s.fail(w, r, "get widget", "", err)
		return
	}

	found, ok, err := s.Service.GetWidgetByName(r.Context(), name)
	if err != nil {
		s.fail(w, r, "get widget", name, err)
		return
	}
	if !ok {
		kit.WriteStatus(w, http.StatusNotFound)
		return
	}
	kit.WriteJSON(w, http.StatusOK, found)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r)
	if err != nil {
		s.fail(w, r, "update widget", "", err)
		return
	}

	p, err := s.patchFromForm(w, r)
	if err != nil {
		s.fail(w, r, "update widget", name, err)
		return
	}

	updated, ok, err := s.Service.UpdateWidget(r.Context(), name, p)
	if err != nil {
		s.fail(w, r, "update widget", name, err)
		return
	}
	if !ok {
		kit.WriteStatus(w, http.StatusNotFound)
		return
	}
	kit.WriteJSON(w, http.StatusOK, updated)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r)
	if err != nil {
		s.fail(w, r, "delete widget", "", err)
		return
	}

	removed, err := s.Service.DeleteWidget(r.Context(), name)
	if err != nil {
		s.fail(w, r, "delete widget", name, err)
		return
	}
	if !removed {
		kit.WriteStatus(w, http.StatusNotFound)
		return
	}
	kit.WriteStatus(w, http.StatusNoContent)
}

// fail maps an error to a status. Only malformed input gets a body;
// everything unexpected is logged and answered with a bare 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op, name string, err error) {
	switch {
	case errors.Is(err, ErrInvalid):
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		kit.WriteStatus(w, http.StatusNotFound)
	default:
		s.logger().Error(op+" failed", zap.Error(err), zap.String("name", name))
		kit.WriteStatus(w, http.StatusInternalServerError)
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Server) maxBody() int64 {
	if s.MaxBodyBytes > 0 {
		return s.MaxBodyBytes
	}
	return defaultMaxBody
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody())
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: bad json: %v", ErrInvalid, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: extra data after json value", ErrInvalid)
	}
	return nil
}

// patchFromForm reads description and price from the query string or a
// urlencoded body. Absent parameters stay nil.
func (s *Server) patchFromForm(w http.ResponseWriter, r *http.Request) (Patch, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody())
	if err := r.ParseForm(); err != nil {
		return Patch{}, fmt.Errorf("%w: bad form: %v", ErrInvalid, err)
	}

	var p Patch
	if r.Form.Has("description") {
		p.Description = String(r.Form.Get("description"))
	}
	if r.Form.Has("price") {
		raw := r.Form.Get("price")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Patch{}, fmt.Errorf("%w: price %q is not a number", ErrInvalid, raw)
		}
		p.Price = Float(v)
	}
	return p, nil
}

// nameParam decodes the {name} segment exactly once. chi matches on
// RawPath when the request carries one (e.g. an escaped "/"), and on the
// already decoded Path otherwise.
func nameParam(r *http.Request) (string, error) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name, nil
	}
	name, err := url.PathUnescape(name)
	if err != nil {
		return "", fmt.Errorf("%w: bad name: %v", ErrInvalid, err)
	}
	return name, nil
}
