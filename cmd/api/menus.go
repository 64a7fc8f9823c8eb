package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/parser"
)

var (
	ErrInvalidID = errors.New("invalid ID format")
)

// listMenusHandler godoc
//
//	@Summary		List converted menus
//	@Description	List stored conversions, newest first
//	@Tags			menus
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum number of menus to return"	default(20)
//	@Success		200		{array}		domain.ConvertedMenu
//	@Failure		500		{object}	map[string]string
//	@Router			/menus [get]
func (app *application) listMenusHandler(w http.ResponseWriter, r *http.Request) {
	limit := int64(20)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			app.badRequestResponse(w, r, fmt.Errorf("invalid limit: %q", raw))
			return
		}
		limit = parsed
	}

	menus, err := app.conversionService.ListMenus(r.Context(), limit)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusOK, menus); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getMenuHandler godoc
//
//	@Summary		Get converted menu by ID
//	@Description	Get a stored conversion with its original document, substitutions and unresolved items
//	@Tags			menus
//	@Produce		json
//	@Param			menu_id	path		string	true	"Menu ID"
//	@Success		200		{object}	domain.ConvertedMenu
//	@Failure		400		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/menus/{menu_id} [get]
func (app *application) getMenuHandler(w http.ResponseWriter, r *http.Request) {
	menuID, ok := app.menuIDParam(w, r)
	if !ok {
		return
	}

	menu, err := app.conversionService.GetMenu(r.Context(), menuID)
	if err != nil {
		app.notFoundError(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusOK, menu); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteMenuHandler godoc
//
//	@Summary		Delete converted menu
//	@Description	Delete a stored conversion
//	@Tags			menus
//	@Produce		json
//	@Param			menu_id	path	string	true	"Menu ID"
//	@Success		204
//	@Failure		400	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Failure		500	{object}	map[string]string
//	@Router			/menus/{menu_id} [delete]
func (app *application) deleteMenuHandler(w http.ResponseWriter, r *http.Request) {
	menuID, ok := app.menuIDParam(w, r)
	if !ok {
		return
	}

	if err := app.conversionService.DeleteMenu(r.Context(), menuID); err != nil {
		app.notFoundError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// exportMenuHandler godoc
//
//	@Summary		Export converted menu
//	@Description	Download a stored conversion as text, csv or xlsx. The xlsx export highlights every substitution in red.
//	@Tags			menus
//	@Produce		plain
//	@Param			menu_id	path		string	true	"Menu ID"
//	@Param			format	query		string	false	"Export format: text, csv or xlsx"	default(xlsx)
//	@Success		200		{file}		file
//	@Failure		400		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/menus/{menu_id}/export [get]
func (app *application) exportMenuHandler(w http.ResponseWriter, r *http.Request) {
	menuID, ok := app.menuIDParam(w, r)
	if !ok {
		return
	}

	raw := r.URL.Query().Get("format")
	if raw == "" {
		raw = "xlsx"
	}
	exportFormat, err := parser.ParseFormat(raw)
	if err != nil || exportFormat == parser.FormatAuto {
		app.badRequestResponse(w, r, fmt.Errorf("export format must be text, csv or xlsx, got %q", raw))
		return
	}

	out, contentType, err := app.conversionService.ExportMenu(r.Context(), menuID, exportFormat)
	if err != nil {
		app.conversionErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "menu-"+menuID.Hex()+"."+string(exportFormat)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		app.logger.Errorw("failed to write export", "menu_id", menuID.Hex(), "error", err)
	}
}

func (app *application) menuIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	menuIDStr := chi.URLParam(r, "menu_id")
	if menuIDStr == "" {
		app.badRequestResponse(w, r, ErrInvalidID)
		return primitive.NilObjectID, false
	}

	menuID, err := primitive.ObjectIDFromHex(menuIDStr)
	if err != nil {
		app.badRequestResponse(w, r, ErrInvalidID)
		return primitive.NilObjectID, false
	}
	return menuID, true
}
