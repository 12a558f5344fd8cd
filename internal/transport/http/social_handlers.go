package transporthttp

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"timemesh/backend/internal/domain"
	"timemesh/backend/internal/service"
	"timemesh/backend/internal/service/chat"
)

type friendRequest struct {
	FriendID string `json:"friend_id"`
}

type inviteRequest struct {
	CalendarID string `json:"cal_id"`
	Email      string `json:"email"`
}

type inviteRespondRequest struct {
	Token  string `json:"token"`
	Action string `json:"action"`
}

type inviteResponse struct {
	ID         uuid.UUID `json:"invite_id"`
	CalendarID uuid.UUID `json:"cal_id"`
	Email      string    `json:"email"`
	Token      string    `json:"token"`
	Accepted   bool      `json:"accepted"`
	Declined   bool      `json:"declined"`
	CreatedAt  time.Time `json:"created_at"`
}

func toInviteResponse(inv domain.CalendarInvite) inviteResponse {
	return inviteResponse{
		ID:         inv.ID,
		CalendarID: inv.CalendarID,
		Email:      inv.Email,
		Token:      inv.Token,
		Accepted:   inv.Accepted,
		Declined:   inv.Declined,
		CreatedAt:  inv.CreatedAt,
	}
}

type chatRequest struct {
	Messages []chat.Message `json:"messages"`
}

func (s *Server) handleListFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	users, err := s.friends.List(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleAddFriend(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req friendRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	friendID, err := uuid.Parse(req.FriendID)
	if err != nil {
		s.writeError(w, r, service.NewValidationError("friend_id must be a UUID"))
		return
	}
	if err := s.friends.Add(r.Context(), userID, friendID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

func (s *Server) handleRemoveFriend(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	friendID, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, service.NewValidationError("friend id must be a UUID"))
		return
	}
	if err := s.friends.Remove(r.Context(), userID, friendID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListInvites(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	invs, err := s.invites.ListMine(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]inviteResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toInviteResponse(inv))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req inviteRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	calendarID, err := uuid.Parse(req.CalendarID)
	if err != nil {
		s.writeError(w, r, service.NewValidationError("cal_id must be a UUID"))
		return
	}
	inv, err := s.invites.Create(r.Context(), userID, calendarID, req.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInviteResponse(inv))
}

func (s *Server) handleRespondInvite(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req inviteRespondRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	inv, err := s.invites.Respond(r.Context(), userID, req.Action, req.Token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInviteResponse(inv))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req chatRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if len(req.Messages) == 0 {
		s.writeError(w, r, service.NewValidationError("messages must not be empty"))
		return
	}
	result, err := s.chat.Chat(r.Context(), userID, req.Messages)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
