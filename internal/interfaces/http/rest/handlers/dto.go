package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"hoopgraph-backend/internal/connection"
	"hoopgraph-backend/internal/domain"
	apperrors "hoopgraph-backend/pkg/errors"

	"github.com/go-playground/validator/v10"
)

// FlexibleID accepts a player ID as either a JSON string or a JSON number.
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("player id must be a string or a number")
	}
	*id = FlexibleID(n.String())
	return nil
}

// ConnectionRequest is the POST /connections body.
type ConnectionRequest struct {
	StartPlayerID FlexibleID `json:"startPlayerId" validate:"required,playerid"`
	EndPlayerID   FlexibleID `json:"endPlayerId" validate:"required,playerid"`
}

// SearchedPlayerIDs echoes the raw inputs back to the caller.
type SearchedPlayerIDs struct {
	P1 string `json:"p1"`
	P2 string `json:"p2"`
}

// PlayerDTO is one node of a path.
type PlayerDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LinkDTO is one enriched edge of a path.
type LinkDTO struct {
	SourcePlayerID    int64  `json:"sourcePlayerId"`
	SourcePlayerName  string `json:"sourcePlayerName"`
	TargetPlayerID    int64  `json:"targetPlayerId"`
	TargetPlayerName  string `json:"targetPlayerName"`
	SharedTeams       string `json:"sharedTeams"`
	SharedGamesRecord string `json:"sharedGamesRecord"`
	StartYearTogether *int   `json:"startYearTogether,omitempty"`
}

// ConnectionResponse is the body for found, same-player, no-connection and
// unknown-player outcomes.
type ConnectionResponse struct {
	Message           string            `json:"message,omitempty"`
	Path              []PlayerDTO       `json:"path"`
	Degrees           int               `json:"degrees"`
	Links             []LinkDTO         `json:"links"`
	SearchedPlayerIDs SearchedPlayerIDs `json:"searchedPlayerIds"`
}

// ConnectionErrorResponse is the failure body of the connections endpoints.
type ConnectionErrorResponse struct {
	apperrors.ErrorResponse
	SearchedPlayerIDs SearchedPlayerIDs `json:"searchedPlayerIds"`
}

// PlayerResponse describes a single player.
type PlayerResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	TeammateCount int    `json:"teammateCount"`
}

// PlayerSearchResponse lists name matches.
type PlayerSearchResponse struct {
	Query   string      `json:"query"`
	Players []PlayerDTO `json:"players"`
	Count   int         `json:"count"`
}

// GraphStatsResponse summarises the loaded snapshot.
type GraphStatsResponse struct {
	domain.GraphStats
	MaxDegrees int       `json:"maxDegrees"`
	LoadedAt   time.Time `json:"loadedAt"`
}

func newPlayerDTO(p domain.Player) PlayerDTO {
	return PlayerDTO{ID: int64(p.ID), Name: p.Name}
}

// NewConnectionResponse renders a search result.
func NewConnectionResponse(res *connection.Result) ConnectionResponse {
	resp := ConnectionResponse{
		Message:           res.Message,
		Path:              make([]PlayerDTO, len(res.Path)),
		Degrees:           res.Degrees,
		Links:             make([]LinkDTO, len(res.Links)),
		SearchedPlayerIDs: SearchedPlayerIDs{P1: res.StartRaw, P2: res.EndRaw},
	}
	for i, p := range res.Path {
		resp.Path[i] = newPlayerDTO(p)
	}
	for i, l := range res.Links {
		resp.Links[i] = LinkDTO{
			SourcePlayerID:    int64(l.Source.ID),
			SourcePlayerName:  l.Source.Name,
			TargetPlayerID:    int64(l.Target.ID),
			TargetPlayerName:  l.Target.Name,
			SharedTeams:       l.SharedTeams,
			SharedGamesRecord: l.SharedGamesRecord,
			StartYearTogether: l.StartYearTogether,
		}
	}
	return resp
}

func newRequestValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("playerid", func(fl validator.FieldLevel) bool {
		_, err := domain.ParsePlayerID(fl.Field().String())
		return err == nil
	})
	return v
}

func formatRequestErrors(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := jsonFieldName(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "playerid":
			msgs = append(msgs, fmt.Sprintf("%s must be an integer player id", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func jsonFieldName(field string) string {
	switch field {
	case "StartPlayerID":
		return "startPlayerId"
	case "EndPlayerID":
		return "endPlayerId"
	default:
		return field
	}
}
