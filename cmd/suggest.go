package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/uvalib/virgo4-history-suggestor-ws/history"
)

// Suggestion contains data for a single suggestion
type Suggestion struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
	Token       string  `json:"token"`
}

// SuggestionRequest defines the format of a suggestion request
type SuggestionRequest struct {
	Query string `json:"query"`
}

// SuggestionResponse contains the full set of suggestions
type SuggestionResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// VisitRequest defines the format of a visit request
type VisitRequest struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func boolOptionWithFallback(opt string, fallback bool) bool {
	var err error
	var val bool

	if val, err = strconv.ParseBool(opt); err != nil {
		val = fallback
	}

	return val
}

// SuggestHandler returns history suggestions for the query in the request body
func (svc *ServiceContext) SuggestHandler(c *gin.Context) {
	var req SuggestionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("invalid suggestion request")
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}

	verbose := boolOptionWithFallback(c.Query("verbose"), svc.config.Verbose)

	suggestions, err := svc.provider.OnInputChanged(c.Request.Context(), req.Query)
	if err != nil {
		log.Error().Err(err).Msgf("suggestions for [%s] failed", req.Query)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "history lookup failed"})
		return
	}

	res := SuggestionResponse{Suggestions: make([]Suggestion, 0, len(suggestions))}

	for i, s := range suggestions {
		if verbose == true {
			log.Info().Msgf("%03d %03.2f %s", i, s.Score, s.URL)
		}

		res.Suggestions = append(res.Suggestions, Suggestion{
			ID:          s.ID,
			URL:         s.URL,
			Description: s.Description,
			Score:       s.Score,
			Token:       svc.clicks.issue(s.OnClicked),
		})
	}

	if verbose == true {
		log.Info().Msgf("overall  : %v", len(res.Suggestions))
	}

	c.JSON(http.StatusOK, res)
}

// ClickHandler records that the user clicked a previously returned suggestion
func (svc *ServiceContext) ClickHandler(c *gin.Context) {
	if svc.clicks.fire(c.Param("token")) == false {
		c.JSON(http.StatusNotFound, errorResponse{Error: "unknown or expired suggestion"})
		return
	}

	c.Status(http.StatusNoContent)
}

// VisitHandler loads a chosen URL, recording it in history
func (svc *ServiceContext) VisitHandler(c *gin.Context) {
	var req VisitRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}

	if err := svc.provider.Load(c.Request.Context(), req.URL); err != nil {
		log.Warn().Err(err).Msgf("visit [%s] failed", req.URL)
		if errors.Is(err, history.ErrInvalidURL) {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid url"})
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "visit failed"})
		return
	}

	c.Status(http.StatusNoContent)
}
