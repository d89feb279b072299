package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-shop-sync/internal/domain"
)

// DiscountRequest carries a code and the cart total it applies to, in whole
// currency units.
type DiscountRequest struct {
	Code      string `json:"code" binding:"required" example:"SPRING10"`
	CartTotal int64  `json:"cart_total" example:"250"`
}

// EvaluateResponse is the outcome of checking a code without applying it.
type EvaluateResponse struct {
	Discount domain.Discount `json:"discount"`
	Valid    bool            `json:"valid"`
	Amount   int64           `json:"amount"`
	NewTotal int64           `json:"new_total"`
	Reason   string          `json:"reason,omitempty" example:"discount expired"`
}

// EvaluateDiscount godoc
// @ID          evaluateDiscount
// @Summary     Check a discount code
// @Description Looks the code up and evaluates it against cart_total without applying it. An inapplicable code answers 200 with valid=false and a reason.
// @Tags        Discounts
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.DiscountRequest  true  "Code and cart total"
// @Success     200  {object}  handlers.EvaluateResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown code"
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream unavailable"
// @Router      /discounts/evaluate [post]
func (h *Handlers) EvaluateDiscount(c *gin.Context) {
	var req DiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "code required")
		return
	}
	d, res, err := h.discounts.Evaluate(c.Request.Context(), req.Code, req.CartTotal)
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := EvaluateResponse{Discount: d, Valid: res.Valid, Amount: res.Amount, NewTotal: res.NewTotal}
	if res.Err != nil {
		resp.Reason = res.Err.Error()
	}
	ok(c, http.StatusOK, resp)
}

// GetCartDiscount godoc
// @ID          getCartDiscount
// @Summary     Get the applied discount
// @Description Re-evaluates the caller's applied discount against the current cart total. A discount that no longer applies is removed and 404 is returned.
// @Tags        Discounts
// @Produce     json
// @Security    BearerAuth
// @Param       total  query  int  true  "Current cart total"  minimum(0) example(250)
// @Success     200  {object}  domain.AppliedDiscount
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "No active discount"
// @Failure     401  {object}  handlers.LoginRequiredResponse  "Login required"
// @Router      /cart/discount [get]
func (h *Handlers) GetCartDiscount(c *gin.Context) {
	total, err := strconv.ParseInt(c.Query("total"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "total must be an integer")
		return
	}
	applied, err := h.discounts.Active(c.Request.Context(), total)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, applied)
}

// ApplyCartDiscount godoc
// @ID          applyCartDiscount
// @Summary     Apply a discount code
// @Description Evaluates the code and, when it applies, stores it as the active discount. A rejected code leaves any earlier discount in place.
// @Tags        Discounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  handlers.DiscountRequest  true  "Code and cart total"
// @Success     200  {object}  domain.AppliedDiscount
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown code"
// @Failure     422  {object}  handlers.ErrorResponse  "Code does not apply"
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream unavailable"
// @Failure     401  {object}  handlers.LoginRequiredResponse  "Login required"
// @Router      /cart/discount [post]
func (h *Handlers) ApplyCartDiscount(c *gin.Context) {
	var req DiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "code required")
		return
	}
	applied, err := h.discounts.Apply(c.Request.Context(), req.Code, req.CartTotal)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, applied)
}

// RemoveCartDiscount godoc
// @ID          removeCartDiscount
// @Summary     Remove the applied discount
// @Tags        Discounts
// @Security    BearerAuth
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "No active discount"
// @Failure     401  {object}  handlers.LoginRequiredResponse  "Login required"
// @Router      /cart/discount [delete]
func (h *Handlers) RemoveCartDiscount(c *gin.Context) {
	if err := h.discounts.Remove(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	noContent(c)
}
