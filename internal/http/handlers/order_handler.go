// Package handlers: order drafts.
//
// An order draft walks overview → shipping → custom fields → added. Every
// endpoint answers with the full draft so clients render from one shape.
//
// Idempotency:
// The two endpoints that can reach the cart (shipping/next and submit) honour
// the Idempotency-Key header. A retry with the same key after a successful
// cart-add returns the stored outcome with `Idempotency-Replayed: true`
// instead of adding the product twice.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-shop-sync/internal/domain"
	"github.com/tbourn/go-shop-sync/internal/http/middleware"
	"github.com/tbourn/go-shop-sync/internal/services"
)

//
// DTOs
//

// OpenOrderRequest starts a draft.
type OpenOrderRequest struct {
	ProductID string `json:"product_id" binding:"required" example:"p1"`
	Quantity  int    `json:"quantity" example:"1"`
}

// SelectAddressRequest picks a shipping address.
type SelectAddressRequest struct {
	AddressID string `json:"address_id" binding:"required" example:"a1"`
}

// SetFieldsRequest sets custom field values keyed by label.
type SetFieldsRequest struct {
	Values map[string]any `json:"values" binding:"required"`
}

//
// Helpers
//

// idempotencyKey prefers the key validated by middleware and falls back to
// the raw header.
func idempotencyKey(c *gin.Context) string {
	if k, found := middleware.GetIdempotencyKey(c); found {
		return k
	}
	return strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
}

// draftResult writes d with status, or maps err.
func (h *Handlers) draftResult(c *gin.Context, status int, d services.Draft, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	if d.Replayed {
		c.Header("Idempotency-Replayed", "true")
	}
	ok(c, status, d)
}

//
// Handlers
//

// OpenOrder godoc
// @ID          openOrder
// @Summary     Start an order draft
// @Description Opens a draft for the product on the overview step. Requires a logged-in user; anonymous callers get 401 with login_url.
// @Tags        Orders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  handlers.OpenOrderRequest  true  "Product and quantity"
// @Success     201  {object}  services.Draft
// @Failure     400  {object}  handlers.ErrorResponse          "Bad request"
// @Failure     401  {object}  handlers.LoginRequiredResponse  "Login required"
// @Failure     404  {object}  handlers.ErrorResponse          "Product not found"
// @Failure     429  {object}  handlers.ErrorResponse          "Too many open drafts"
// @Router      /orders [post]
func (h *Handlers) OpenOrder(c *gin.Context) {
	var req OpenOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ProductID) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "product_id required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	d, err := h.orders.Open(c.Request.Context(), strings.TrimSpace(req.ProductID), req.Quantity)
	h.draftResult(c, http.StatusCreated, d, err)
}

// GetOrder godoc
// @ID          getOrder
// @Summary     Get an order draft
// @Tags        Orders
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string  true  "Draft ID (UUID)"  format(uuid)
// @Success     200  {object}  services.Draft
// @Failure     401  {object}  handlers.LoginRequiredResponse  "Login required"
// @Failure     404  {object}  handlers.ErrorResponse          "Draft not found"
// @Router      /orders/{id} [get]
func (h *Handlers) GetOrder(c *gin.Context) {
	d, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	h.draftResult(c, http.StatusOK, d, err)
}

// ToShipping godoc
// @ID          orderToShipping
// @Summary     Continue to shipping
// @Tags        Orders
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string  true  "Draft ID (UUID)"  format(uuid)
// @Success     200  {object}  services.Draft
// @Failure     404  {object}  handlers.ErrorResponse  "Draft not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Not on the overview step"
// @Router      /orders/{id}/shipping [post]
func (h *Handlers) ToShipping(c *gin.Context) {
	d, err := h.orders.ToShipping(c.Request.Context(), c.Param("id"))
	h.draftResult(c, http.StatusOK, d, err)
}

// SelectAddress godoc
// @ID          orderSelectAddress
// @Summary     Select the shipping address
// @Tags        Orders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string                           true  "Draft ID (UUID)"  format(uuid)
// @Param       body  body  handlers.SelectAddressRequest    true  "Address"
// @Success     200  {object}  services.Draft
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown address"
// @Failure     404  {object}  handlers.ErrorResponse  "Draft not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Not on the shipping step"
// @Router      /orders/{id}/address [put]
func (h *Handlers) SelectAddress(c *gin.Context) {
	var req SelectAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.AddressID) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "address_id required")
		return
	}
	d, err := h.orders.SelectAddress(c.Request.Context(), c.Param("id"), req.AddressID)
	h.draftResult(c, http.StatusOK, d, err)
}

// AddAddress godoc
// @ID          orderAddAddress
// @Summary     Add and select a new shipping address
// @Tags        Orders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string          true  "Draft ID (UUID)"  format(uuid)
// @Param       body  body  domain.Address  true  "Address (id is assigned upstream)"
// @Success     200  {object}  services.Draft
// @Failure     404  {object}  handlers.ErrorResponse  "Draft not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Not on the shipping step"
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream unavailable"
// @Router      /orders/{id}/addresses [post]
func (h *Handlers) AddAddress(c *gin.Context) {
	var a domain.Address
	if err := c.ShouldBindJSON(&a); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	a.ID = ""
	d, err := h.orders.AddAddress(c.Request.Context(), c.Param("id"), a)
	h.draftResult(c, http.StatusOK, d, err)
}

// NextFromShipping godoc
// @ID          orderFromShipping
// @Summary     Leave the shipping step
// @Description Moves to the custom fields step, or adds the product to the cart when it has none. Honours Idempotency-Key.
// @Tags        Orders
// @Produce     json
// @Security    BearerAuth
// @Param       id               path    string  true   "Draft ID (UUID)"  format(uuid)
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Success     200  {object}  services.Draft
// @Header      200  {string}  Idempotency-Replayed  "true when the stored outcome was returned"
// @Failure     404  {object}  handlers.ErrorResponse  "Draft not found"
// @Failure     409  {object}  handlers.ErrorResponse  "No address selected or wrong step"
// @Failure     502  {object}  handlers.ErrorResponse  "Cart add failed"
// @Router      /orders/{id}/shipping/next [post]
func (h *Handlers) NextFromShipping(c *gin.Context) {
	d, err := h.orders.FromShipping(c.Request.Context(), c.Param("id"), idempotencyKey(c))
	h.draftResult(c, http.StatusOK, d, err)
}

// SetFields godoc
// @ID          orderSetFields
// @Summary     Set custom field values
// @Tags        Orders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string                     true  "Draft ID (UUID)"  format(uuid)
// @Param       body  body  handlers.SetFieldsRequest  true  "Values keyed by field label"
// @Success     200  {object}  services.Draft
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown field or bad value"
// @Failure     404  {object}  handlers.ErrorResponse  "Draft not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Not on the custom fields step"
// @Router      /orders/{id}/fields [put]
func (h *Handlers) SetFields(c *gin.Context) {
	var req SetFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "values required")
		return
	}
	d, err := h.orders.SetFields(c.Request.Context(), c.Param("id"), req.Values)
	h.draftResult(c, http.StatusOK, d, err)
}

// SubmitOrder godoc
// @ID          submitOrder
// @Summary     Submit the order to the cart
// @Description Validates the custom fields and adds the product to the cart. Honours Idempotency-Key.
// @Tags        Orders
// @Produce     json
// @Security    BearerAuth
// @Param       id               path    string  true   "Draft ID (UUID)"  format(uuid)
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Success     200  {object}  services.Draft
// @Header      200  {string}  Idempotency-Replayed  "true when the stored outcome was returned"
// @Failure     404  {object}  handlers.ErrorResponse            "Draft not found"
// @Failure     409  {object}  handlers.ErrorResponse            "Wrong step or submission in progress"
// @Failure     422  {object}  handlers.ValidationErrorResponse  "Invalid custom fields"
// @Failure     502  {object}  handlers.ErrorResponse            "Cart add failed"
// @Router      /orders/{id}/submit [post]
func (h *Handlers) SubmitOrder(c *gin.Context) {
	d, err := h.orders.Submit(c.Request.Context(), c.Param("id"), idempotencyKey(c))
	h.draftResult(c, http.StatusOK, d, err)
}

// BackOrder godoc
// @ID          orderBack
// @Summary     Go back one step
// @Tags        Orders
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string  true  "Draft ID (UUID)"  format(uuid)
// @Success     200  {object}  services.Draft
// @Failure     404  {object}  handlers.ErrorResponse  "Draft not found"
// @Failure     409  {object}  handlers.ErrorResponse  "No previous step"
// @Router      /orders/{id}/back [post]
func (h *Handlers) BackOrder(c *gin.Context) {
	d, err := h.orders.Back(c.Request.Context(), c.Param("id"))
	h.draftResult(c, http.StatusOK, d, err)
}

// CloseOrder godoc
// @ID          closeOrder
// @Summary     Discard an order draft
// @Tags        Orders
// @Security    BearerAuth
// @Param       id   path  string  true  "Draft ID (UUID)"  format(uuid)
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Draft not found"
// @Router      /orders/{id} [delete]
func (h *Handlers) CloseOrder(c *gin.Context) {
	if err := h.orders.Close(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	noContent(c)
}
