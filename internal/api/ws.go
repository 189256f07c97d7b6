package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sprite-ai/codeq/internal/model"
)

// WebSocket message types from client.
const (
	wsMsgAnalyze = "analyze"
	wsMsgCompare = "compare"
	wsMsgReset   = "reset"
	wsMsgFinish  = "finish"
)

// WebSocket message types to client.
const (
	wsMsgSession    = "session"
	wsMsgResult     = "result"
	wsMsgComparison = "comparison"
	wsMsgSummary    = "summary"
	wsMsgError      = "error"
)

// wsMessage is the envelope for WebSocket messages in both directions.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// wsAnalyze is the payload for "analyze" messages.
type wsAnalyze struct {
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
	FilePath string `json:"file_path,omitempty"`
}

// wsCompare is the payload for "compare" messages. Without original_code
// the last analyzed submission of the session is version A.
type wsCompare struct {
	OriginalCode string `json:"original_code,omitempty"`
	ModifiedCode string `json:"modified_code"`
	Language     string `json:"language,omitempty"`
}

type wsSessionResponse struct {
	SessionID string `json:"session_id"`
	Backend   string `json:"backend"`
}

// wsSummaryResponse is sent when the session is finished.
type wsSummaryResponse struct {
	SessionID   string `json:"session_id"`
	Analyses    int    `json:"analyses"`
	Failed      int    `json:"failed"`
	Comparisons int    `json:"comparisons"`
	LastRisk    string `json:"last_risk,omitempty"`
}

// analysisSession holds the state for one WebSocket connection.
type analysisSession struct {
	id          string
	last        *model.Submission
	lastResult  *model.Result
	analyses    int
	failed      int
	comparisons int
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024 * 64,
		WriteBufferSize: 1024 * 64,
		CheckOrigin:     s.allowOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)

	session := &analysisSession{id: uuid.NewString()}
	logger := s.logger.With(zap.String("session_id", session.id))
	logger.Debug("websocket session opened")

	s.sendWSMessage(conn, wsMsgSession, wsSessionResponse{
		SessionID: session.id,
		Backend:   s.analyzer.Guard().Backend(),
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read", zap.Error(err))
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendWSError(conn, "invalid message format")
			continue
		}

		switch msg.Type {
		case wsMsgAnalyze:
			s.handleWSAnalyze(r, conn, session, msg.Data)
		case wsMsgCompare:
			s.handleWSCompare(r, conn, session, msg.Data)
		case wsMsgReset:
			session.last, session.lastResult = nil, nil
			s.sendWSMessage(conn, wsMsgSession, wsSessionResponse{
				SessionID: session.id,
				Backend:   s.analyzer.Guard().Backend(),
			})
		case wsMsgFinish:
			s.sendWSMessage(conn, wsMsgSummary, session.summary())
		default:
			s.sendWSError(conn, "unknown message type: "+msg.Type)
		}
	}
}

func (s *Server) handleWSAnalyze(r *http.Request, conn *websocket.Conn, session *analysisSession, data json.RawMessage) {
	var req wsAnalyze
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWSError(conn, "invalid analyze data")
		return
	}

	sub := model.Submission{Code: req.Code, Language: req.Language, FileName: req.FilePath}
	res := s.analyzer.Analyze(r.Context(), sub)

	session.analyses++
	if res.Failed() {
		session.failed++
	} else {
		session.last, session.lastResult = &sub, res
	}
	s.sendWSMessage(conn, wsMsgResult, res)
}

func (s *Server) handleWSCompare(r *http.Request, conn *websocket.Conn, session *analysisSession, data json.RawMessage) {
	var req wsCompare
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWSError(conn, "invalid compare data")
		return
	}

	original, language := req.OriginalCode, req.Language
	if original == "" {
		if session.last == nil {
			s.sendWSError(conn, "no analyzed code to compare against")
			return
		}
		original = session.last.Code
		if language == "" {
			language = session.last.Language
		}
	}

	session.comparisons++
	s.sendWSMessage(conn, wsMsgComparison, s.analyzer.Compare(r.Context(), original, req.ModifiedCode, language))
}

func (a *analysisSession) summary() wsSummaryResponse {
	out := wsSummaryResponse{
		SessionID:   a.id,
		Analyses:    a.analyses,
		Failed:      a.failed,
		Comparisons: a.comparisons,
	}
	if a.lastResult != nil {
		out.LastRisk = a.lastResult.Risk.Level.String()
	}
	return out
}

func (s *Server) sendWSMessage(conn *websocket.Conn, msgType string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		s.logger.Warn("ws marshal", zap.Error(err))
		return
	}
	msg := wsMessage{Type: msgType, Data: raw}
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Warn("ws write", zap.Error(err))
	}
}

func (s *Server) sendWSError(conn *websocket.Conn, errMsg string) {
	s.sendWSMessage(conn, wsMsgError, map[string]string{"message": errMsg})
}
