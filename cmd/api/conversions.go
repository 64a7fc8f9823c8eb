package main

import (
	"net/http"

	"github.com/go-chi/chi"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// createConversionHandler godoc
//
//	@Summary		Queue a menu conversion
//	@Description	Stores a conversion task and processes it in the background. Poll the returned task id for the result.
//	@Tags			conversions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ConvertRequest	true	"Conversion request"
//	@Success		201		{object}	map[string]string
//	@Failure		400		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Failure		503		{object}	map[string]string
//	@Router			/conversions [post]
func (app *application) createConversionHandler(w http.ResponseWriter, r *http.Request) {
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

	task, err := app.conversionService.CreateTask(r.Context(), input)
	if err != nil {
		app.conversionErrorResponse(w, r, err)
		return
	}

	response := map[string]string{
		"task_id": task.ID.Hex(),
		"status":  string(task.Status),
	}

	if err := app.jsonRespone(w, http.StatusCreated, response); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getConversionHandler godoc
//
//	@Summary		Get conversion task status
//	@Description	Get a conversion task, its status and the id of the converted menu once completed
//	@Tags			conversions
//	@Produce		json
//	@Param			task_id	path		string	true	"Task ID"
//	@Success		200		{object}	domain.ConversionTask
//	@Failure		400		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/conversions/{task_id} [get]
func (app *application) getConversionHandler(w http.ResponseWriter, r *http.Request) {
	taskIDStr := chi.URLParam(r, "task_id")
	if taskIDStr == "" {
		app.badRequestResponse(w, r, ErrInvalidID)
		return
	}

	taskID, err := primitive.ObjectIDFromHex(taskIDStr)
	if err != nil {
		app.badRequestResponse(w, r, ErrInvalidID)
		return
	}

	task, err := app.conversionService.GetTask(r.Context(), taskID)
	if err != nil {
		app.conversionErrorResponse(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusOK, task); err != nil {
		app.internalServerError(w, r, err)
	}
}
