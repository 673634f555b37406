package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"postscheduler/pkg/scheduler"
	"postscheduler/store"
)

const maxIntentBytes = 64 * 1024

// scheduleRequest is the wire form of a scheduling intent. Weekdays arrive
// as lowercase names ("monday"), matching what the form layer submits.
type scheduleRequest struct {
	Platforms      []string `json:"platforms"`
	Content        string   `json:"content"`
	ImageURL       string   `json:"image_url,omitempty"`
	AttachmentName string   `json:"attachment_name,omitempty"`
	Schedule       struct {
		Type     string   `json:"type"`
		Date     string   `json:"date,omitempty"`
		Time     string   `json:"time"`
		Weekdays []string `json:"weekdays,omitempty"`
	} `json:"schedule"`
}

func (req *scheduleRequest) toIntent() (scheduler.Intent, error) {
	intent := scheduler.Intent{
		Content:        req.Content,
		ImageURL:       req.ImageURL,
		AttachmentName: req.AttachmentName,
		Schedule: scheduler.Schedule{
			Type: scheduler.ScheduleType(req.Schedule.Type),
			Date: req.Schedule.Date,
			Time: req.Schedule.Time,
		},
	}
	for _, p := range req.Platforms {
		intent.Platforms = append(intent.Platforms, scheduler.Platform(p))
	}
	for _, name := range req.Schedule.Weekdays {
		wd, err := scheduler.ParseWeekday(name)
		if err != nil {
			return scheduler.Intent{}, err
		}
		intent.Schedule.Weekdays = append(intent.Schedule.Weekdays, wd)
	}
	return intent, nil
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req scheduleRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIntentBytes))
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	intent, err := req.toIntent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	receipt, err := s.scheduler.Schedule(r.Context(), intent)
	if err != nil {
		if scheduler.IsValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Error("Failed to schedule posts", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.logger.Info("Scheduling request accepted",
		"records", len(receipt.Posts),
		"eager_sent", receipt.EagerSent)

	writeJSON(w, s.logger, http.StatusCreated, receipt)
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var f store.Filter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := scheduler.Status(raw)
		if status != scheduler.StatusPending && !status.Terminal() {
			http.Error(w, "Unknown status filter", http.StatusBadRequest)
			return
		}
		f.Status = &status
	}
	f.OrderByScheduledAt = true

	posts, err := s.lister.List(r.Context(), f)
	if err != nil {
		s.logger.Error("Failed to list posts", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if posts == nil {
		posts = []*scheduler.ScheduledPost{}
	}

	writeJSON(w, s.logger, http.StatusOK, posts)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write response", "error", err)
	}
}
