// Package api serves the indexer's derived state as read-only JSON
// over HTTP (component M's external surface). Routing and templating
// for a full explorer UI are out of scope; this wires chi purely as a
// thin JSON router, grounded on the go-chi/chi dependency carried by
// bsc-erigon and orbas1-Synnergy's go.mod.
package api

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"boneindex.dev/indexer/indexer"
	"boneindex.dev/indexer/inscription"
	"boneindex.dev/indexer/relics"
)

// Server wraps an indexer.Reader with a chi router.
type Server struct {
	reader *indexer.Reader
	log    *zap.Logger
	router chi.Router
}

// New builds a Server serving reader's state, logging requests via log.
func New(reader *indexer.Reader, log *zap.Logger) *Server {
	s := &Server{reader: reader, log: log}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/v1/tip", s.handleTip)
	r.Get("/v1/relics/{id}", s.handleRelicByID)
	r.Get("/v1/relics/by-name/{name}", s.handleRelicByName)
	r.Get("/v1/relics/{id}/syndicate", s.handleSyndicate)
	r.Get("/v1/relics/{id}/syndicate/chests", s.handleSyndicateChests)
	r.Get("/v1/relics/{id}/events", s.handleRelicEvents)
	r.Get("/v1/outputs/{txid}/{vout}", s.handleOutputBalances)
	r.Get("/v1/tx/{txid}/events", s.handleTxEvents)
	r.Get("/v1/inscriptions/by-seq/{seq}", s.handleInscriptionBySeq)
	r.Get("/v1/inscriptions/{id}", s.handleInscriptionByID)
	r.Get("/v1/chests/{seq}", s.handleChest)
	s.router = r
	return s
}

// ServeHTTP satisfies http.Handler, so Server can be passed directly
// to http.Server or httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Debug("request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func parseRelicIDParam(r *http.Request, key string) (relics.RelicID, error) {
	return relics.ParseRelicID(chi.URLParam(r, key))
}

func parseTxidParam(r *http.Request, key string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(chi.URLParam(r, key))
	if err != nil || len(raw) != 32 {
		return out, fmt.Errorf("api: malformed txid")
	}
	copy(out[:], raw)
	return out, nil
}

func (s *Server) handleTip(w http.ResponseWriter, r *http.Request) {
	height, ok, err := s.reader.TipHeight()
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"height": height, "synced": ok})
}

func (s *Server) handleRelicByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseRelicIDParam(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	entry, err := s.reader.RelicEntry(id)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if entry == nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("api: no relic %s", id))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleRelicByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	id, ok, err := s.reader.RelicIDByName(name)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeErr(w, http.StatusNotFound, fmt.Errorf("api: no relic named %q", name))
		return
	}
	entry, err := s.reader.RelicEntry(id)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleSyndicate(w http.ResponseWriter, r *http.Request) {
	id, err := parseRelicIDParam(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	entry, err := s.reader.Syndicate(id)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if entry == nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("api: no syndicate %s", id))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleSyndicateChests(w http.ResponseWriter, r *http.Request) {
	id, err := parseRelicIDParam(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	seqs, err := s.reader.SyndicateChests(id)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, seqs)
}

func (s *Server) handleRelicEvents(w http.ResponseWriter, r *http.Request) {
	id, err := parseRelicIDParam(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	events, err := s.reader.EventsForRelic(id)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleOutputBalances(w http.ResponseWriter, r *http.Request) {
	txid, err := parseTxidParam(r, "txid")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	var vout uint32
	if _, err := fmt.Sscanf(chi.URLParam(r, "vout"), "%d", &vout); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("api: malformed vout"))
		return
	}
	balances, err := s.reader.OutputBalances(txid, vout)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

func (s *Server) handleTxEvents(w http.ResponseWriter, r *http.Request) {
	txid, err := parseTxidParam(r, "txid")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	events, err := s.reader.EventsForTxid(txid)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleInscriptionBySeq(w http.ResponseWriter, r *http.Request) {
	var seq uint32
	if _, err := fmt.Sscanf(chi.URLParam(r, "seq"), "%d", &seq); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("api: malformed sequence"))
		return
	}
	entry, err := s.reader.InscriptionBySequence(seq)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if entry == nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("api: no inscription at seq %d", seq))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleInscriptionByID(w http.ResponseWriter, r *http.Request) {
	id, err := inscription.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	entry, err := s.reader.InscriptionByID(id)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if entry == nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("api: no inscription %s", id))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleChest(w http.ResponseWriter, r *http.Request) {
	var seq uint32
	if _, err := fmt.Sscanf(chi.URLParam(r, "seq"), "%d", &seq); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("api: malformed sequence"))
		return
	}
	chest, err := s.reader.Chest(seq)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if chest == nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("api: no chest at seq %d", seq))
		return
	}
	writeJSON(w, http.StatusOK, chest)
}
