package utils

// Request headers
const (
	HeaderUserID    = "X-User-ID"
	HeaderDeviceID  = "X-Device-ID"
	HeaderRequestID = "X-Request-ID"
)

// Context keys set by middleware
const (
	ContextUserID    = "user_id"
	ContextDeviceID  = "device_id"
	ContextRequestID = "request_id"
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrInternalServer   = "internal server error"
	ErrUnauthorized     = "unauthorized"
	ErrForbidden        = "forbidden"
	ErrValidationFailed = "validation failed"
	ErrCouponNotFound   = "coupon not found"
	ErrTierLocked       = "coupon requires a higher tier"
	ErrAlreadyClaimed   = "coupon already claimed"
	ErrCouponExpired    = "coupon expired"
	ErrNotAvailable     = "coupon is not available"
	ErrNotEnoughPoints  = "insufficient points"
	ErrPointsOffline    = "points are temporarily unavailable"
	ErrStorageOffline   = "coupon wallet is temporarily unavailable"
)

// Error codes
const (
	CodeCouponNotFound     = "COUPON_NOT_FOUND"
	CodeTierLocked         = "TIER_LOCKED"
	CodeAlreadyClaimed     = "ALREADY_CLAIMED"
	CodeCouponExpired      = "COUPON_EXPIRED"
	CodeCouponNotAvailable = "COUPON_NOT_AVAILABLE"
	CodeInsufficientPoints = "INSUFFICIENT_POINTS"
	CodeSessionFailed      = "SESSION_FAILED"
	CodePointsUnavailable  = "POINTS_UNAVAILABLE"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
)
