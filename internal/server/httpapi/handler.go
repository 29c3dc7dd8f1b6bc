package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/workhub/internal/common"
	"github.com/dmitrijs2005/workhub/internal/server/services"
)

// maxBodyBytes caps request bodies; every payload here is a few fields.
const maxBodyBytes = 1 << 20

// defaultScheduleSpan is the listing window when "to" is omitted.
const defaultScheduleSpan = 7 * 24 * time.Hour

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	u, err := s.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "Registered", "username", u.UserName)
	writeJSON(w, http.StatusCreated, userResponse{ID: u.ID, Username: u.UserName})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	token, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token})
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, urlResponse{URL: s.users.AuthorizationURL(r.URL.Query().Get("state"))})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decode(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	err := s.users.ConnectRemote(r.Context(), userIDFrom(r.Context()), services.RemoteCredentials{
		Code:         req.Code,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		Expiry:       req.Expiry,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.users.DisconnectRemote(r.Context(), userIDFrom(r.Context())); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	res, err := s.schedules.Sync(r.Context(), userID)
	if err != nil {
		s.logger.Warn(r.Context(), "sync failed", "user_id", userID, "error", err)
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{Created: res.Created, Updated: res.Updated, Deleted: res.Deleted})
}

func (s *Server) handleListLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := s.labels.List(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]labelResponse, 0, len(labels))
	for _, l := range labels {
		out = append(out, toLabelResponse(l))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateLabel(w http.ResponseWriter, r *http.Request) {
	var req labelRequest
	if err := decode(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	l, err := s.labels.Create(r.Context(), userIDFrom(r.Context()), req.Name, req.Color)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLabelResponse(l))
}

func (s *Server) handleUpdateLabel(w http.ResponseWriter, r *http.Request) {
	var req labelRequest
	if err := decode(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	l, err := s.labels.Update(r.Context(), userIDFrom(r.Context()), r.PathValue("id"), req.Name, req.Color)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLabelResponse(l))
}

func (s *Server) handleDeleteLabel(w http.ResponseWriter, r *http.Request) {
	if err := s.labels.Delete(r.Context(), userIDFrom(r.Context()), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.groups.List(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, toGroupResponse(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decode(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var desc string
	if req.Description != nil {
		desc = *req.Description
	}
	g, err := s.groups.Create(r.Context(), userIDFrom(r.Context()), req.Name, desc)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupResponse(g))
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decode(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	g, err := s.groups.Update(r.Context(), userIDFrom(r.Context()), r.PathValue("id"), req.Name, req.Description)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(g))
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.Delete(r.Context(), userIDFrom(r.Context()), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.groups.ListFiles(r.Context(), userIDFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAttachFile(w http.ResponseWriter, r *http.Request) {
	var req attachRequest
	if err := decode(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	ticket, err := s.groups.AttachFile(r.Context(), userIDFrom(r.Context()), r.PathValue("id"), req.FileName)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := toFileResponse(ticket.File)
	resp.UploadURL = ticket.UploadURL
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCompleteUpload(w http.ResponseWriter, r *http.Request) {
	err := s.groups.CompleteUpload(r.Context(), userIDFrom(r.Context()), r.PathValue("id"), r.PathValue("fileID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	url, err := s.groups.DownloadURL(r.Context(), userIDFrom(r.Context()), r.PathValue("id"), r.PathValue("fileID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, urlResponse{URL: url})
}

// handleListSchedules accepts RFC 3339 "from" and "to" query parameters.
// from defaults to the start of the current UTC day, to to a week after from.
func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from := s.now().UTC().Truncate(24 * time.Hour)
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeServiceError(w, r, fmt.Errorf("%w: from: %v", common.ErrorValidation, err))
			return
		}
		from = t
	}
	to := from.Add(defaultScheduleSpan)
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeServiceError(w, r, fmt.Errorf("%w: to: %v", common.ErrorValidation, err))
			return
		}
		to = t
	}

	list, err := s.schedules.List(r.Context(), userIDFrom(r.Context()), from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]scheduleResponse, 0, len(list))
	for _, sc := range list {
		out = append(out, toScheduleResponse(sc))
	}
	writeJSON(w, http.StatusOK, out)
}
