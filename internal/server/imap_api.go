package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/teemow/mailfeed/internal/store"
)

// handleGetSettings returns the stored IMAP settings. The password is
// redacted by the Settings JSON shape; only its presence is reported.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.settings.GetSettings(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeJSON(w, http.StatusOK, settingsResponse{Settings: &store.Settings{
				SearchFolder:       "INBOX",
				EmailCheckInterval: 15,
			}})
			return
		}
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, settingsResponse{
		Settings:    cfg,
		PasswordSet: cfg.IMAPPassword != "",
	})
}

type settingsResponse struct {
	*store.Settings
	PasswordSet bool `json:"password_set"`
}

type settingsRequest struct {
	IMAPServer         string `json:"imap_server"`
	IMAPUsername       string `json:"imap_username"`
	IMAPPassword       string `json:"imap_password"`
	SearchFolder       string `json:"search_folder"`
	MoveToFolder       string `json:"move_to_folder"`
	MarkAsRead         bool   `json:"mark_as_read"`
	EmailCheckInterval int    `json:"email_check_interval"`
	AutoAddNewSenders  bool   `json:"auto_add_new_senders"`
}

// handleUpdateSettings stores the IMAP settings. An empty password keeps
// the previously stored one.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.IMAPServer == "" || req.IMAPUsername == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "imap_server and imap_username are required"})
		return
	}

	updated, err := s.settings.UpdateSettings(r.Context(), store.Settings{
		IMAPServer:         req.IMAPServer,
		IMAPUsername:       req.IMAPUsername,
		IMAPPassword:       req.IMAPPassword,
		SearchFolder:       req.SearchFolder,
		MoveToFolder:       req.MoveToFolder,
		MarkAsRead:         req.MarkAsRead,
		EmailCheckInterval: req.EmailCheckInterval,
		AutoAddNewSenders:  req.AutoAddNewSenders,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, settingsResponse{
		Settings:    updated,
		PasswordSet: updated.IMAPPassword != "",
	})
}

type testConnectionResponse struct {
	Status     string `json:"status"`
	AuthMethod string `json:"auth_method"`
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	method, err := s.processor.TestConnection(ctx)
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordIMAPOperation(ctx, "test", method, status, time.Since(start))

	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, testConnectionResponse{
		Status:     "ok",
		AuthMethod: method,
	})
}

type foldersResponse struct {
	Folders []string `json:"folders"`
}

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	folders, err := s.processor.ListFolders(ctx)
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordIMAPOperation(ctx, "folders", "", status, time.Since(start))

	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if folders == nil {
		folders = []string{}
	}
	s.writeJSON(w, http.StatusOK, foldersResponse{Folders: folders})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	result, err := s.processor.Run(ctx)
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordIMAPOperation(ctx, "process", "", status, time.Since(start))

	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.metrics.RecordMessagesProcessed(ctx, result.Folder, int64(result.Total))
	s.writeJSON(w, http.StatusOK, result)
}
