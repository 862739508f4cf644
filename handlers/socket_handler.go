package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/UnExplainableFish52/reliant-learners-academy/middleware"
	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/UnExplainableFish52/reliant-learners-academy/session"
	ws "github.com/UnExplainableFish52/reliant-learners-academy/websocket"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// socketCommand is every message a student client may send. The first one
// must be "auth".
type socketCommand struct {
	Type             string  `json:"type"`
	Token            string  `json:"token,omitempty"`
	QuestionID       int     `json:"questionId,omitempty"`
	AnswerText       *string `json:"answerText,omitempty"`
	SelectedOptionID *int    `json:"selectedOptionId,omitempty"`
	Index            int     `json:"index,omitempty"`
	Confirmed        bool    `json:"confirmed,omitempty"`
	Kind             string  `json:"kind,omitempty"`
}

type socketReply struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Route   string `json:"route,omitempty"`
	Index   *int   `json:"index,omitempty"`
	Data    any    `json:"data,omitempty"`
}

const socketAuthTimeout = 10 * time.Second

func (h *Handler) TestSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()

		testID, err := strconv.Atoi(conn.Params("testId"))
		if err != nil {
			conn.WriteJSON(socketReply{Type: "error", Message: "Invalid testId"})
			return
		}

		p, err := h.socketAuth(conn)
		if err != nil {
			conn.WriteJSON(socketReply{Type: "error", Message: "Invalid or expired JWT"})
			return
		}

		s, err := h.Sessions.Bootstrap(context.Background(), p, testID, nil)
		if err != nil {
			var re *session.RedirectError
			if errors.As(err, &re) {
				conn.WriteJSON(socketReply{Type: string(session.EventNavigate), Message: re.Alert, Route: re.Route})
			}
			return
		}

		client := ws.NewClient(p.ID, testID, conn)
		h.Hub.Register(client)
		defer func() {
			if left := h.Hub.Unregister(client); left == 0 {
				h.Sessions.Detach(p.ID, testID)
			}
		}()

		if !s.Active() {
			client.Send(socketReply{Type: string(session.EventNavigate), Route: session.ReviewRoute(s.ID())})
			return
		}
		if resp, err := sessionResponse(s); err == nil {
			client.Send(socketReply{Type: "state", Data: resp})
		}

		for {
			var cmd socketCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				log.Debug().Err(err).Int("studentID", p.ID).Msg("socket closed")
				return
			}
			// the session may have been stopped and resumed since the last command
			cur, err := h.Sessions.Bootstrap(context.Background(), p, testID, nil)
			if err != nil {
				var re *session.RedirectError
				if errors.As(err, &re) {
					client.Send(socketReply{Type: string(session.EventNavigate), Message: re.Alert, Route: re.Route})
				}
				return
			}
			if reply, ok := h.handleCommand(cur, cmd); ok {
				if err := client.Send(reply); err != nil {
					return
				}
			}
		}
	})
}

func (h *Handler) socketAuth(conn *websocket.Conn) (models.Principal, error) {
	conn.SetReadDeadline(time.Now().Add(socketAuthTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var cmd socketCommand
	if err := conn.ReadJSON(&cmd); err != nil {
		return models.Principal{}, err
	}
	if cmd.Type != "auth" {
		return models.Principal{}, middleware.ErrBadClaims
	}
	p, err := middleware.ParseToken(h.Config.JWTSecret, cmd.Token)
	if err != nil {
		return models.Principal{}, err
	}
	if p.Role != models.RoleStudent {
		return models.Principal{}, middleware.ErrBadClaims
	}
	return p, nil
}

// handleCommand applies one client command. Completion replies are left to
// the navigate event the session publishes.
func (h *Handler) handleCommand(s *session.Session, cmd socketCommand) (socketReply, bool) {
	fail := func(err error) (socketReply, bool) {
		return socketReply{Type: "error", Message: err.Error()}, true
	}
	switch cmd.Type {
	case "answer":
		err := s.SetAnswer(cmd.QuestionID, session.AnswerPatch{AnswerText: cmd.AnswerText, SelectedOptionID: cmd.SelectedOptionID})
		if err != nil {
			return fail(err)
		}
		return socketReply{Type: "saved"}, true
	case "next", "previous", "goto":
		var i int
		switch cmd.Type {
		case "next":
			i = s.Next()
		case "previous":
			i = s.Previous()
		default:
			var err error
			if i, err = s.Goto(cmd.Index); err != nil {
				return fail(err)
			}
		}
		return socketReply{Type: "index", Index: &i}, true
	case "submit":
		if err := s.Submit(cmd.Confirmed); err != nil {
			return fail(err)
		}
		return socketReply{}, false
	case "violation":
		s.ReportCheating(cmd.Kind)
		return socketReply{}, false
	case "state":
		resp, err := sessionResponse(s)
		if err != nil {
			return fail(err)
		}
		return socketReply{Type: "state", Data: resp}, true
	}
	return socketReply{Type: "error", Message: "unknown command " + cmd.Type}, true
}
