package web

import (
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mogaika/gamestop/app"
	"github.com/mogaika/gamestop/render"
	"github.com/mogaika/gamestop/scene"
	"github.com/mogaika/gamestop/status"
	"github.com/mogaika/gamestop/webutils"
)

func (s *Server) HandlerView(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("[web] Upgrade error: %v", err)
		return
	}
	v := s.hub.register(conn)
	go s.hub.writePump(v)
	s.readPump(v)
}

func HandlerStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("[web] Upgrade error: %v", err)
		return
	}
	status.Serve(conn)
}

type sceneResponse struct {
	scene.Summary
	Viewport   app.Viewport `json:"viewport"`
	Camera     [3]float32   `json:"camera"`
	Frames     uint64       `json:"frames"`
	RenderInfo render.Info  `json:"render"`
}

func (s *Server) HandlerAjaxScene(w http.ResponseWriter, r *http.Request) {
	var resp sceneResponse
	if err := s.call(r.Context(), func() {
		resp = sceneResponse{
			Summary:    s.app.Scene.Summary(),
			Viewport:   s.app.Viewport(),
			Camera:     s.app.Camera.Position,
			Frames:     s.app.Frames(),
			RenderInfo: s.app.RenderInfo(),
		}
	}); err != nil {
		webutils.WriteErrorStatus(w, http.StatusServiceUnavailable, errors.Wrapf(err, "Scene not available"))
		return
	}
	webutils.WriteJson(w, resp)
}

func (s *Server) HandlerAjaxModels(w http.ResponseWriter, r *http.Request) {
	var states []scene.ModelState
	if err := s.call(r.Context(), func() {
		states = s.app.Models.State()
	}); err != nil {
		webutils.WriteErrorStatus(w, http.StatusServiceUnavailable, errors.Wrapf(err, "Models not available"))
		return
	}
	webutils.WriteJson(w, states)
}

func (s *Server) HandlerAjaxStats(w http.ResponseWriter, r *http.Request) {
	encoded, dropped := s.hub.Stats()
	loaded, failed, total := s.app.Manager.Progress()
	webutils.WriteJson(w, map[string]interface{}{
		"viewers":        s.hub.Viewers(),
		"framesEncoded":  encoded,
		"framesDropped":  dropped,
		"assetsLoaded":   loaded,
		"assetsFailed":   failed,
		"assetsTotal":    total,
		"queuedCommands": s.queue.Len(),
	})
}
