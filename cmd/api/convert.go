package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/parser"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/repo"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/resolver"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/service"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/suggest"
)

// ConvertRequest describes one menu conversion. The menu arrives as
// inline text (content), base64 bytes for binary uploads
// (content_base64) or a Google Sheets reference (spreadsheet_id).
type ConvertRequest struct {
	MenuName      string   `json:"menu_name" validate:"required"`
	Content       string   `json:"content"`
	ContentBase64 string   `json:"content_base64"`
	SpreadsheetID string   `json:"spreadsheet_id"`
	ReadRange     string   `json:"read_range"`
	Format        string   `json:"format" validate:"omitempty,oneof=auto text csv xlsx"`
	Allergens     []string `json:"allergens" validate:"required,min=1,dive,oneof=gluten dairy nuts egg soy fish"`
}

func (req *ConvertRequest) toInput() (service.ConvertInput, error) {
	sources := 0
	for _, set := range []bool{req.Content != "", req.ContentBase64 != "", req.SpreadsheetID != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return service.ConvertInput{}, errors.New("provide exactly one of content, content_base64 or spreadsheet_id")
	}

	content := []byte(req.Content)
	if req.ContentBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ContentBase64)
		if err != nil {
			return service.ConvertInput{}, fmt.Errorf("invalid content_base64: %w", err)
		}
		content = decoded
	}

	format, err := parser.ParseFormat(req.Format)
	if err != nil {
		return service.ConvertInput{}, err
	}

	allergens, err := domain.NewAllergenSet(req.Allergens...)
	if err != nil {
		return service.ConvertInput{}, err
	}

	return service.ConvertInput{
		MenuName:      req.MenuName,
		Content:       content,
		SpreadsheetID: req.SpreadsheetID,
		ReadRange:     req.ReadRange,
		Format:        format,
		Allergens:     allergens,
	}, nil
}

// convertHandler godoc
//
//	@Summary		Convert a menu synchronously
//	@Description	Parses a menu, flags the selected allergens and applies substitutions. Returns the converted menu in one round trip.
//	@Tags			conversions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ConvertRequest	true	"Conversion request"
//	@Success		200		{object}	domain.ConvertedMenu
//	@Failure		400		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Failure		503		{object}	map[string]string
//	@Router			/convert [post]
func (app *application) convertHandler(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := readJson(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	input, err := req.toInput()
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	menu, err := app.conversionService.Convert(r.Context(), input)
	if err != nil {
		app.conversionErrorResponse(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusOK, menu); err != nil {
		app.internalServerError(w, r, err)
	}
}

// conversionErrorResponse maps conversion failures onto status codes:
// unusable input is the client's fault, missing wiring is ours.
func (app *application) conversionErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var parseErr *parser.ParseError
	switch {
	case errors.As(err, &parseErr):
		app.badRequestResponse(w, r, err)
	case errors.Is(err, resolver.ErrNoSuggester),
		errors.Is(err, service.ErrNoFetcher),
		errors.Is(err, service.ErrAsyncDisabled),
		errors.Is(err, suggest.ErrMissingAPIKey),
		errors.Is(err, suggest.ErrUnauthorized):
		app.unavailableResponse(w, r, err)
	case errors.Is(err, repo.ErrNotFound):
		app.notFoundError(w, r, err)
	default:
		app.internalServerError(w, r, err)
	}
}
