package httpapi

import (
	"time"

	"github.com/dmitrijs2005/workhub/internal/server/models"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

type connectRequest struct {
	Code         string    `json:"code,omitempty"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

type syncResponse struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

type labelRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type labelResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	IsFromRemote bool   `json:"is_from_remote"`
	IsDefault    bool   `json:"is_default"`
	DisplayOrder int    `json:"display_order"`
}

func toLabelResponse(l *models.Label) labelResponse {
	return labelResponse{
		ID:           l.ID,
		Name:         l.Name,
		Color:        l.Color,
		IsFromRemote: l.IsFromRemote,
		IsDefault:    l.IsDefault,
		DisplayOrder: l.DisplayOrder,
	}
}

type groupRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type groupResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func toGroupResponse(g *models.Group) groupResponse {
	return groupResponse{ID: g.ID, Name: g.Name, Description: g.Description, Status: string(g.Status)}
}

type attachRequest struct {
	FileName string `json:"file_name"`
}

type fileResponse struct {
	ID           string `json:"id"`
	FileName     string `json:"file_name"`
	UploadStatus string `json:"upload_status"`
	UploadURL    string `json:"upload_url,omitempty"`
}

func toFileResponse(f *models.GroupFile) fileResponse {
	return fileResponse{ID: f.ID, FileName: f.FileName, UploadStatus: f.UploadStatus}
}

type urlResponse struct {
	URL string `json:"url"`
}

type scheduleResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	StartAt         time.Time `json:"start_at"`
	EndAt           time.Time `json:"end_at"`
	AllDay          bool      `json:"all_day"`
	Color           string    `json:"color"`
	Location        string    `json:"location"`
	Organizer       string    `json:"organizer"`
	Attendees       string    `json:"attendees"`
	ExternalEventID string    `json:"external_event_id,omitempty"`
	IsFromRemote    bool      `json:"is_from_remote"`
	LabelIDs        []string  `json:"label_ids"`
	GroupID         string    `json:"group_id,omitempty"`
}

func toScheduleResponse(s *models.Schedule) scheduleResponse {
	labelIDs := s.LabelIDs
	if labelIDs == nil {
		labelIDs = []string{}
	}
	return scheduleResponse{
		ID:              s.ID,
		Title:           s.Title,
		Description:     s.Description,
		StartAt:         s.StartAt,
		EndAt:           s.EndAt,
		AllDay:          s.AllDay,
		Color:           s.Color,
		Location:        s.Location,
		Organizer:       s.Organizer,
		Attendees:       s.Attendees,
		ExternalEventID: s.ExternalEventID,
		IsFromRemote:    s.IsFromRemote,
		LabelIDs:        labelIDs,
		GroupID:         s.GroupID,
	}
}
