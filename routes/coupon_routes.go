package routes

import (
	handlers "vipclub/internal/handlers/shared"
	"vipclub/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupCouponRoutes sets up the coupon wallet and favorites routes
func SetupCouponRoutes(r *gin.RouterGroup, couponHandler *handlers.CouponHandler) {
	r.Use(middleware.UserIdentity())

	// Browsable without a user
	r.GET("/offers", couponHandler.ListOffers)
	r.GET("/coupons/:coupon_id", couponHandler.GetCoupon)

	// Device-scoped favorites
	favorites := r.Group("/favorites")
	{
		favorites.GET("", couponHandler.ListFavorites)
		favorites.POST("/:coupon_id/toggle", couponHandler.ToggleFavorite)
	}

	// Wallet operations (require a user)
	coupons := r.Group("/coupons")
	coupons.Use(middleware.UserRequired())
	{
		coupons.GET("", couponHandler.ListCoupons)
		coupons.GET("/segments", couponHandler.GetSegments)
		coupons.POST("/refresh", couponHandler.RefreshCoupons)
		coupons.POST("/:coupon_id/claim", couponHandler.ClaimCoupon)
		coupons.POST("/instances/:instance_id/redeem", couponHandler.RedeemCoupon)
	}

	r.GET("/points", middleware.UserRequired(), couponHandler.GetPoints)
	r.DELETE("/session", middleware.UserRequired(), couponHandler.CloseSession)
}
