package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bazcar/bazcar-backend/config"
	"github.com/bazcar/bazcar-backend/internal/app/controller"
	"github.com/bazcar/bazcar-backend/internal/middleware"
)

type Router struct {
	catalogController  *controller.CatalogController
	quoteController    *controller.QuoteController
	cartController     *controller.CartController
	checkoutController *controller.CheckoutController
	qrController       *controller.QRController
	noticeController   *controller.NoticeController
	sessionMiddleware  *middleware.SessionMiddleware
	config             *config.Config
}

func NewRouter(
	catalogController *controller.CatalogController,
	quoteController *controller.QuoteController,
	cartController *controller.CartController,
	checkoutController *controller.CheckoutController,
	qrController *controller.QRController,
	noticeController *controller.NoticeController,
	sessionMiddleware *middleware.SessionMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		catalogController:  catalogController,
		quoteController:    quoteController,
		cartController:     cartController,
		checkoutController: checkoutController,
		qrController:       qrController,
		noticeController:   noticeController,
		sessionMiddleware:  sessionMiddleware,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "BAZCAR API is running",
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(r.sessionMiddleware.Identify())
	{
		cars := v1.Group("/cars")
		{
			cars.GET("", r.catalogController.ListCars)
			cars.GET("/popular", r.catalogController.PopularCars)
			cars.GET("/:slug", r.catalogController.GetCar)
			cars.GET("/:slug/services", r.catalogController.GetCarServices)
			cars.GET("/:slug/unavailable-dates", r.catalogController.GetUnavailableDates)
		}

		v1.GET("/services", r.catalogController.ListServices)
		v1.GET("/booking-options", r.catalogController.BookingOptions)
		v1.POST("/quote", r.quoteController.Quote)

		cart := v1.Group("/cart")
		{
			cart.GET("", r.cartController.GetCart)
			cart.POST("", r.cartController.AddToCart)
			cart.DELETE("", r.cartController.ClearCart)
			cart.GET("/export", r.cartController.ExportCart)
			cart.PUT("/:id", r.cartController.UpdateCartItem)
			cart.DELETE("/:id", r.cartController.RemoveFromCart)
		}

		checkout := v1.Group("/checkout")
		{
			checkout.GET("", r.checkoutController.GetCheckout)
			checkout.POST("/confirm", r.checkoutController.ConfirmCheckout)
			checkout.POST("/submit", r.checkoutController.SubmitCheckout)
		}

		qr := v1.Group("/qr")
		{
			qr.GET("", r.qrController.GetQR)
			qr.POST("/verify", r.qrController.VerifyQR)
			qr.DELETE("", r.qrController.ForgetQR)
		}

		v1.GET("/ws/notices", r.noticeController.Connect)
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Accept, Origin, Cache-Control, X-Requested-With, "+middleware.SessionTokenHeader+", "+middleware.RequestIDHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", middleware.SessionTokenHeader+", "+middleware.RequestIDHeader+", Content-Disposition")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
