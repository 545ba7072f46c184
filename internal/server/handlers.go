package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Bradley1112/nurture/internal/session"
	"github.com/Bradley1112/nurture/internal/store"
)

const maxBody = 1 << 20

func (s *Server) health(c *gin.Context) {
	if s.ping != nil {
		if err := s.ping(c.Request.Context()); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			failWith(c, http.StatusServiceUnavailable, "store unavailable",
				gin.H{"status": "degraded", "components": gin.H{"store": "down"}})
			return
		}
	}
	success(c, gin.H{"status": "ok", "components": gin.H{"store": "up"}})
}

func pathKey(c *gin.Context) store.Key {
	return store.Key{
		UserID:    c.Param("userId"),
		SubjectID: c.Param("subjectId"),
		TopicID:   c.Param("topicId"),
	}
}

func (s *Server) getProgress(c *gin.Context) {
	key := pathKey(c)
	if err := key.Validate(); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	tp, found, err := s.engine.Progress(c.Request.Context(), key)
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusServiceUnavailable, "progress store unavailable")
		return
	}
	if !found {
		fail(c, http.StatusNotFound, "no progress recorded for this topic")
		return
	}
	success(c, tp)
}

func (s *Server) getSessionConfig(c *gin.Context) {
	cfg, err := s.engine.InitializeSessionConfig(c.Request.Context(), pathKey(c))
	if err != nil {
		s.engineError(c, err)
		return
	}
	success(c, gin.H{"config": cfg, "personalized": cfg != nil})
}

func (s *Server) startSession(c *gin.Context) {
	key := pathKey(c)
	body, ok := s.bodyWithKey(c, key)
	if !ok {
		return
	}
	req, err := session.DecodeStart(body)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.Input()
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.engine.StartSession(c.Request.Context(), key, in)
	if err != nil {
		s.engineError(c, err)
		return
	}
	success(c, res)
}

func (s *Server) finalizeSession(c *gin.Context) {
	key := pathKey(c)
	body, ok := s.bodyWithKey(c, key)
	if !ok {
		return
	}
	req, err := session.DecodeFinalize(body)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.engine.FinalizeSession(c.Request.Context(), key, req.Input())
	if err != nil && res != nil {
		// graded, but the progress write did not land
		_ = c.Error(err)
		status := http.StatusServiceUnavailable
		if errors.Is(err, store.ErrVersionConflict) {
			status = http.StatusConflict
		}
		failWith(c, status, "session graded but progress not saved", res)
		return
	}
	if err != nil {
		s.engineError(c, err)
		return
	}
	success(c, res)
}

func (s *Server) engineError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, store.ErrInvalidKey), errors.Is(err, session.ErrInvalidPayload):
		fail(c, http.StatusBadRequest, err.Error())
	default:
		fail(c, http.StatusServiceUnavailable, "progress store unavailable")
	}
}

// bodyWithKey reads the JSON object body and sets the topic key from the
// path. A body key that disagrees with the path is rejected.
func (s *Server) bodyWithKey(c *gin.Context, key store.Key) ([]byte, bool) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
	if err != nil {
		fail(c, http.StatusBadRequest, "read body: "+err.Error())
		return nil, false
	}
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		fail(c, http.StatusBadRequest, "body must be a JSON object")
		return nil, false
	}
	for field, want := range map[string]string{
		"userId":    key.UserID,
		"subjectId": key.SubjectID,
		"topicId":   key.TopicID,
	} {
		if got, ok := obj[field]; ok && got != want {
			fail(c, http.StatusBadRequest, fmt.Sprintf("%s in body does not match path", field))
			return nil, false
		}
		obj[field] = want
	}
	out, err := json.Marshal(obj)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return out, true
}
