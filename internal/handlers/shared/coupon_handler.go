package handlers

import (
	"errors"
	"net/http"

	"vipclub/internal/middleware"
	"vipclub/internal/services"
	"vipclub/internal/utils"
	"vipclub/pkg/logger"

	"github.com/gin-gonic/gin"
)

type CouponHandler struct {
	sessions *services.SessionManager
	logger   *logger.Logger
}

func NewCouponHandler(sessions *services.SessionManager, log *logger.Logger) *CouponHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &CouponHandler{
		sessions: sessions,
		logger:   log,
	}
}

// ListCoupons returns every coupon the user holds with its effective status
func (h *CouponHandler) ListCoupons(c *gin.Context) {
	store, ok := h.session(c)
	if !ok {
		return
	}

	coupons := store.ClaimedCoupons()
	utils.SuccessResponseWithMeta(c, "Coupons retrieved successfully", coupons, &utils.Meta{Count: len(coupons)})
}

// GetSegments returns held coupons grouped as available, used and expired
func (h *CouponHandler) GetSegments(c *gin.Context) {
	store, ok := h.session(c)
	if !ok {
		return
	}

	utils.SuccessResponse(c, "Coupon segments retrieved successfully", store.Segments())
}

// ListOffers returns claimable catalog coupons. Signed-out callers see every
// coupon locked.
func (h *CouponHandler) ListOffers(c *gin.Context) {
	store := h.sessions.Guest()
	if middleware.GetUserID(c) != "" {
		var ok bool
		if store, ok = h.session(c); !ok {
			return
		}
	}

	offers := store.Offers()
	utils.SuccessResponseWithMeta(c, "Offers retrieved successfully", offers, &utils.Meta{Count: len(offers)})
}

// GetCoupon returns a definition with the caller's matching instance, if any
func (h *CouponHandler) GetCoupon(c *gin.Context) {
	store := h.sessions.Guest()
	if middleware.GetUserID(c) != "" {
		var ok bool
		if store, ok = h.session(c); !ok {
			return
		}
	}

	detail := store.GetCoupon(c.Param("coupon_id"), c.Query("instance_id"))
	if detail == nil {
		utils.NotFoundResponse(c, utils.CodeCouponNotFound, utils.ErrCouponNotFound)
		return
	}

	utils.SuccessResponse(c, "Coupon retrieved successfully", detail)
}

// ClaimCoupon grants the caller a new instance of a coupon
func (h *CouponHandler) ClaimCoupon(c *gin.Context) {
	store, ok := h.session(c)
	if !ok {
		return
	}

	coupon, err := store.Claim(c.Request.Context(), c.Param("coupon_id"))
	if err != nil {
		h.writeCouponError(c, err)
		return
	}

	utils.CreatedResponse(c, "Coupon claimed successfully", coupon)
}

// RedeemCoupon marks one of the caller's instances as used
func (h *CouponHandler) RedeemCoupon(c *gin.Context) {
	store, ok := h.session(c)
	if !ok {
		return
	}

	coupon, err := store.Redeem(c.Request.Context(), c.Param("instance_id"))
	if err != nil {
		h.writeCouponError(c, err)
		return
	}

	utils.SuccessResponse(c, "Coupon redeemed successfully", coupon)
}

// RefreshCoupons re-resolves the caller's tier and re-hydrates their coupons
func (h *CouponHandler) RefreshCoupons(c *gin.Context) {
	store, err := h.sessions.Refresh(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.writeCouponError(c, err)
		return
	}

	utils.SuccessResponse(c, "Coupons refreshed successfully", gin.H{
		"tier":    store.Tier(),
		"coupons": store.ClaimedCoupons(),
	})
}

// GetPoints returns the caller's spendable points balance
func (h *CouponHandler) GetPoints(c *gin.Context) {
	points, err := h.sessions.Points(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.writeCouponError(c, err)
		return
	}

	utils.SuccessResponse(c, "Points retrieved successfully", gin.H{
		"points": points,
	})
}

// CloseSession drops the caller's in-memory session. Stored coupons are kept.
func (h *CouponHandler) CloseSession(c *gin.Context) {
	userID := middleware.GetUserID(c)
	h.sessions.Close(userID)

	utils.SuccessResponse(c, "Session closed successfully", gin.H{
		"user_id": userID,
	})
}

// ListFavorites returns the favorited coupon ids for the calling device
func (h *CouponHandler) ListFavorites(c *gin.Context) {
	favorites := h.sessions.Favorites(c.Request.Context(), middleware.GetDeviceID(c))
	ids := favorites.IDs()
	utils.SuccessResponseWithMeta(c, "Favorites retrieved successfully", ids, &utils.Meta{Count: len(ids)})
}

// ToggleFavorite flips a coupon in the calling device's favorites
func (h *CouponHandler) ToggleFavorite(c *gin.Context) {
	couponID := c.Param("coupon_id")
	favorites := h.sessions.Favorites(c.Request.Context(), middleware.GetDeviceID(c))

	utils.SuccessResponse(c, "Favorite updated successfully", gin.H{
		"coupon_id": couponID,
		"favorite":  favorites.Toggle(c.Request.Context(), couponID),
	})
}

func (h *CouponHandler) session(c *gin.Context) (*services.EntitlementStore, bool) {
	store, err := h.sessions.Session(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.writeCouponError(c, err)
		return nil, false
	}
	return store, true
}

func (h *CouponHandler) writeCouponError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNoUser):
		utils.UnauthorizedResponse(c)
	case errors.Is(err, services.ErrCouponNotFound):
		utils.NotFoundResponse(c, utils.CodeCouponNotFound, utils.ErrCouponNotFound)
	case errors.Is(err, services.ErrTierLocked):
		utils.ForbiddenResponse(c, utils.CodeTierLocked, utils.ErrTierLocked)
	case errors.Is(err, services.ErrAlreadyClaimed):
		utils.ConflictResponse(c, utils.CodeAlreadyClaimed, utils.ErrAlreadyClaimed)
	case errors.Is(err, services.ErrCouponExpired):
		utils.ConflictResponse(c, utils.CodeCouponExpired, utils.ErrCouponExpired)
	case errors.Is(err, services.ErrCouponNotAvailable):
		utils.ConflictResponse(c, utils.CodeCouponNotAvailable, utils.ErrNotAvailable)
	case errors.Is(err, services.ErrInsufficientPoints):
		utils.PaymentRequiredResponse(c, utils.CodeInsufficientPoints, utils.ErrNotEnoughPoints)
	case errors.Is(err, services.ErrPointsUnavailable):
		h.logger.WithUserID(middleware.GetUserID(c)).WithError(err).Warn("Points ledger unavailable")
		utils.ServiceUnavailableResponse(c, utils.CodePointsUnavailable, utils.ErrPointsOffline)
	case errors.Is(err, services.ErrStorageUnavailable):
		utils.ServiceUnavailableResponse(c, utils.CodeStorageUnavailable, utils.ErrStorageOffline)
	default:
		h.logger.WithUserID(middleware.GetUserID(c)).WithError(err).Error("Coupon request failed")
		utils.ErrorResponse(c, http.StatusInternalServerError, utils.CodeSessionFailed, utils.ErrInternalServer)
	}
}
