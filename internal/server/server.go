// Package server exposes a board log over HTTP and websockets, and has the
// matching client.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"SharedBoard/internal/codec"
	"SharedBoard/internal/export"
	"SharedBoard/internal/remotelog"
	"SharedBoard/internal/state"
)

// BoardLog is a log that can also list a board and report entry ids, such as
// remotelog.Hub or remotelog.RedisLog.
type BoardLog interface {
	remotelog.Log
	remotelog.Replayer
	OnEntry(board state.BoardID, fn func(remotelog.Entry)) (remotelog.Subscription, error)
	Entries(ctx context.Context, board state.BoardID) ([]remotelog.Entry, error)
}

type Server struct {
	log      BoardLog
	router   *mux.Router
	upgrader websocket.Upgrader
}

func New(log BoardLog) *Server {
	s := &Server{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	r := mux.NewRouter()
	r.Use(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			m := httpsnoop.CaptureMetrics(handler, writer, request)
			glog.V(1).Infof("[server]%s %s %d %s", request.Method, request.URL, m.Code, m.Duration)
		})
	})
	r.Methods(http.MethodGet).Path("/boards/{board}/ws").HandlerFunc(s.serveWs)
	r.Methods(http.MethodGet).Path("/boards/{board}/strokes").HandlerFunc(s.listStrokes)
	r.Methods(http.MethodDelete).Path("/boards/{board}/strokes").HandlerFunc(s.clearStrokes)
	r.Methods(http.MethodGet).Path("/boards/{board}/export.pdf").HandlerFunc(s.exportPDF)
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{Addr: addr, Handler: s.router}
	errs := make(chan error, 1)
	go func() {
		errs <- httpServer.ListenAndServe()
	}()
	glog.Infof("[server]listening on %s", addr)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		httpServer.Close()
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func boardOf(request *http.Request) state.BoardID {
	return state.BoardID(mux.Vars(request)["board"])
}

func (s *Server) listStrokes(writer http.ResponseWriter, request *http.Request) {
	entries, err := s.log.Entries(request.Context(), boardOf(request))
	if err != nil {
		glog.Errorf("[server]list %s failed: %s", boardOf(request), err)
		http.Error(writer, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []remotelog.Entry{}
	}
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(entries); err != nil {
		glog.Warningf("[server]write listing failed: %s", err)
	}
}

func (s *Server) clearStrokes(writer http.ResponseWriter, request *http.Request) {
	if err := s.log.Clear(request.Context(), boardOf(request)); err != nil {
		http.Error(writer, err.Error(), http.StatusInternalServerError)
		return
	}
	writer.WriteHeader(http.StatusNoContent)
}

func (s *Server) exportPDF(writer http.ResponseWriter, request *http.Request) {
	board := boardOf(request)
	entries, err := s.log.Entries(request.Context(), board)
	if err != nil {
		http.Error(writer, err.Error(), http.StatusInternalServerError)
		return
	}
	strokes := DecodeEntries(entries)
	writer.Header().Set("Content-Type", "application/pdf")
	writer.Header().Set("Content-Disposition", `attachment; filename="`+string(board)+`.pdf"`)
	if err := export.WritePDF(writer, strokes); err != nil {
		glog.Errorf("[server]export %s failed: %s", board, err)
	}
}

// DecodeEntries decodes a listing, skipping entries that do not decode.
func DecodeEntries(entries []remotelog.Entry) []state.Stroke {
	strokes := make([]state.Stroke, 0, len(entries))
	for _, entry := range entries {
		stroke, err := codec.Decode(entry.Stroke)
		if err != nil {
			glog.Warningf("[server]skipping entry %s: %s", entry.ID, err)
			continue
		}
		strokes = append(strokes, stroke)
	}
	return strokes
}

func (s *Server) serveWs(writer http.ResponseWriter, request *http.Request) {
	board := boardOf(request)
	conn, err := s.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		glog.Warningf("[server]upgrade failed: %s", err)
		return
	}
	p := newPeer(conn, board, s.log)
	p.run(request.Context())
}
