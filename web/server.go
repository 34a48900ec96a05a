package web

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/mogaika/gamestop/app"
	"github.com/mogaika/gamestop/frameloop"
)

//go:embed data
var data embed.FS

const callTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
}

type Server struct {
	app   *app.App
	queue *frameloop.Queue
	hub   *Hub
}

// NewServer attaches a frame hub to a. Calls into a go through queue.
func NewServer(a *app.App, queue *frameloop.Queue, quality int) *Server {
	s := &Server{app: a, queue: queue, hub: NewHub(quality)}
	a.OnFrame(s.hub.Publish)
	return s
}

func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws/view", s.HandlerView)
	r.HandleFunc("/ws/status", HandlerStatus)
	r.HandleFunc("/json/scene", s.HandlerAjaxScene).Methods("GET")
	r.HandleFunc("/json/models", s.HandlerAjaxModels).Methods("GET")
	r.HandleFunc("/json/stats", s.HandlerAjaxStats).Methods("GET")

	static, err := fs.Sub(data, "data")
	if err != nil {
		log.Panicf("[web] embedded data: %v", err)
	}
	r.PathPrefix("/").Handler(http.FileServer(http.FS(static)))

	return handlers.LoggingHandler(os.Stdout, handlers.RecoveryHandler()(r))
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Infof("[web] Starting server %v", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// call runs fn on the loop goroutine and waits for it.
func (s *Server) call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	s.queue.Post(func() {
		fn()
		close(done)
	})
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
