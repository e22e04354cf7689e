package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"receitas/internal/cache"
	"receitas/internal/core"
	"receitas/internal/log"
)

// EntryService is the part of services.EntryService the handlers use.
type EntryService interface {
	FindByID(ctx context.Context, id string) (core.Entry, error)
	FindByMonth(ctx context.Context, month, year string) ([]core.Entry, error)
	FindAll(ctx context.Context) ([]core.Entry, error)
	FindAllByDescription(ctx context.Context, description string) ([]core.Entry, error)
	Save(ctx context.Context, e core.Entry) (core.Entry, error)
	Update(ctx context.Context, e core.Entry, id string) (core.Entry, error)
	Delete(ctx context.Context, id string) error
}

// handleListEntries serves GET /receitas, filtered by ?description= when set.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	var (
		entries []core.Entry
		err     error
	)
	if desc := strings.TrimSpace(r.URL.Query().Get("description")); desc != "" {
		entries, err = s.entries.FindAllByDescription(r.Context(), desc)
	} else {
		entries, err = s.entries.FindAll(r.Context())
	}
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}

	NewJSONResponse().Body(toJSONList(entries)).Write(w)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.entries.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	NewJSONResponse().Body(toJSON(e)).Write(w)
}

// handleListMonth serves GET /receitas/{year}/{month} through the month cache.
func (s *Server) handleListMonth(w http.ResponseWriter, r *http.Request) {
	year, month := r.PathValue("year"), r.PathValue("month")

	entries, hit, err := s.months.GetOrLoad(r.Context(), cache.Key(year, month),
		func(ctx context.Context) ([]core.Entry, error) {
			return s.entries.FindByMonth(ctx, month, year)
		})
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}

	log.FromContext(r.Context()).WithComponent(log.ComponentCache).DebugContext(r.Context(), "Month listing served",
		log.FieldYear, year, log.FieldMonth, month, "cache_hit", hit, "count", len(entries))

	NewJSONResponse().Cache(hit).Body(toJSONList(entries)).Write(w)
}

// handleCreateEntry serves POST /receitas. Any id in the body is ignored.
func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	e, err := DecodeEntry(w, r)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	e.ID = 0

	saved, err := s.entries.Save(r.Context(), e)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	s.months.Invalidate()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/receitas/"+strconv.FormatInt(saved.ID, 10)).
		Body(toJSON(saved)).
		Write(w)
}

// handleUpdateEntry serves PUT /receitas/{id}. The path id wins over the body.
func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	e, err := DecodeEntry(w, r)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	updated, err := s.entries.Update(r.Context(), e, r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	s.months.Invalidate()

	NewJSONResponse().Body(toJSON(updated)).Write(w)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.entries.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	s.months.Invalidate()

	NoContent().Write(w)
}
