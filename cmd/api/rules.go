package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/repo"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/service"
)

type RuleRequest struct {
	Allergen    string `json:"allergen" validate:"required,oneof=gluten dairy nuts egg soy fish"`
	Original    string `json:"original" validate:"required"`
	Replacement string `json:"replacement" validate:"required"`
}

// createRuleHandler godoc
//
//	@Summary		Create substitution rule
//	@Description	Creates a custom substitution rule. Custom rules always win over AI suggestions and over the built-in defaults.
//	@Tags			rules
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RuleRequest	true	"Substitution rule"
//	@Success		201		{object}	domain.SubstitutionRule
//	@Failure		400		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/rules [post]
func (app *application) createRuleHandler(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := readJson(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	rule, err := app.ruleService.Create(r.Context(), service.RuleInput{
		Allergen:    req.Allergen,
		Original:    req.Original,
		Replacement: req.Replacement,
	})
	if err != nil {
		app.ruleErrorResponse(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusCreated, rule); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listRulesHandler godoc
//
//	@Summary		List substitution rules
//	@Description	List custom substitution rules, optionally filtered by allergen
//	@Tags			rules
//	@Produce		json
//	@Param			allergen	query		string	false	"Filter by allergen category"
//	@Success		200			{array}		domain.SubstitutionRule
//	@Failure		400			{object}	map[string]string
//	@Failure		500			{object}	map[string]string
//	@Router			/rules [get]
func (app *application) listRulesHandler(w http.ResponseWriter, r *http.Request) {
	var err error
	var rules interface{}

	if allergen := r.URL.Query().Get("allergen"); allergen != "" {
		rules, err = app.ruleService.ListByAllergen(r.Context(), allergen)
	} else {
		rules, err = app.ruleService.List(r.Context())
	}
	if err != nil {
		app.ruleErrorResponse(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusOK, rules); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listDefaultRulesHandler godoc
//
//	@Summary		List built-in substitution rules
//	@Description	List the substitutions shipped with the converter. Custom rules with the same allergen and original text override them.
//	@Tags			rules
//	@Produce		json
//	@Success		200	{array}	domain.SubstitutionRule
//	@Router			/rules/defaults [get]
func (app *application) listDefaultRulesHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.jsonRespone(w, http.StatusOK, app.ruleService.Defaults()); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getRuleHandler godoc
//
//	@Summary		Get substitution rule
//	@Tags			rules
//	@Produce		json
//	@Param			rule_id	path		string	true	"Rule ID"
//	@Success		200		{object}	domain.SubstitutionRule
//	@Failure		400		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Router			/rules/{rule_id} [get]
func (app *application) getRuleHandler(w http.ResponseWriter, r *http.Request) {
	ruleID, ok := app.ruleIDParam(w, r)
	if !ok {
		return
	}

	rule, err := app.ruleService.Get(r.Context(), ruleID)
	if err != nil {
		app.ruleErrorResponse(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusOK, rule); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateRuleHandler godoc
//
//	@Summary		Update substitution rule
//	@Tags			rules
//	@Accept			json
//	@Produce		json
//	@Param			rule_id	path		string		true	"Rule ID"
//	@Param			request	body		RuleRequest	true	"Substitution rule"
//	@Success		200		{object}	domain.SubstitutionRule
//	@Failure		400		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/rules/{rule_id} [put]
func (app *application) updateRuleHandler(w http.ResponseWriter, r *http.Request) {
	ruleID, ok := app.ruleIDParam(w, r)
	if !ok {
		return
	}

	var req RuleRequest
	if err := readJson(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	rule, err := app.ruleService.Update(r.Context(), ruleID, service.RuleInput{
		Allergen:    req.Allergen,
		Original:    req.Original,
		Replacement: req.Replacement,
	})
	if err != nil {
		app.ruleErrorResponse(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusOK, rule); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteRuleHandler godoc
//
//	@Summary		Delete substitution rule
//	@Tags			rules
//	@Produce		json
//	@Param			rule_id	path	string	true	"Rule ID"
//	@Success		204
//	@Failure		400	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Router			/rules/{rule_id} [delete]
func (app *application) deleteRuleHandler(w http.ResponseWriter, r *http.Request) {
	ruleID, ok := app.ruleIDParam(w, r)
	if !ok {
		return
	}

	if err := app.ruleService.Delete(r.Context(), ruleID); err != nil {
		app.ruleErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *application) ruleErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRule):
		app.badRequestResponse(w, r, err)
	case errors.Is(err, repo.ErrNotFound):
		app.notFoundError(w, r, err)
	default:
		app.internalServerError(w, r, err)
	}
}

func (app *application) ruleIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	ruleIDStr := chi.URLParam(r, "rule_id")
	if ruleIDStr == "" {
		app.badRequestResponse(w, r, ErrInvalidID)
		return primitive.NilObjectID, false
	}

	ruleID, err := primitive.ObjectIDFromHex(ruleIDStr)
	if err != nil {
		app.badRequestResponse(w, r, ErrInvalidID)
		return primitive.NilObjectID, false
	}
	return ruleID, true
}
