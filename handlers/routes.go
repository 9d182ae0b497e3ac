package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"loro-platform/config"
	"loro-platform/metrics"
	"loro-platform/middleware"
	"loro-platform/models"
	"loro-platform/realtime"
	"loro-platform/services"
)

// managers may run org-wide write operations on most resources.
var managers = []models.Role{models.RoleOwner, models.RoleAdmin, models.RoleManager}

// Deps is everything NewApp needs to mount the API.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Verifier *middleware.TokenVerifier
	Features config.FeatureMap
	Hub      *realtime.Hub

	Licenses      *services.LicenseService
	Rewards       *services.RewardsService
	Assets        *services.AssetService
	Leave         *services.LeaveService
	News          *services.NewsService
	Payslips      *services.PayslipService
	Resellers     *services.ResellerService
	Shop          *services.ShopService
	Users         *services.UserService
	Notifications *services.NotificationService
}

// NewApp builds the fiber app with every route group mounted.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:    20 * 1024 * 1024, // payslip PDFs
		ErrorHandler: ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.Observe())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     d.Config.Origins(),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	SetupHealthRoutes(app, d.DB)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	auth := middleware.Authenticate(d.Verifier)
	limit := middleware.RateLimit(d.Config.RateLimitRPS, d.Config.RateLimitBurst)
	license := middleware.RequireLicense(d.Licenses)
	guarded := func(prefix, feature string) fiber.Router {
		return app.Group(prefix, auth, limit, license, middleware.RequireFeature(d.Features, feature))
	}

	// query-token routes go first so the header-auth groups below never see them
	SetupRealtimeRoutes(app, d.Hub, d.Verifier, license, middleware.RequireFeature(d.Features, config.FeatureRealtime))
	SetupNotificationStream(app, d.Notifications, d.Verifier, license)

	SetupRewardsRoutes(guarded("/rewards", config.FeatureRewards), d.Rewards)
	SetupAssetRoutes(guarded("/assets", config.FeatureAssets), d.Assets)
	SetupLeaveRoutes(guarded("/leave", config.FeatureLeave), d.Leave)
	SetupNewsRoutes(guarded("/news", config.FeatureNews), d.News)
	SetupPayslipRoutes(guarded("/payslips", config.FeaturePayslips), d.Payslips)
	SetupResellerRoutes(guarded("/resellers", config.FeatureResellers), d.Resellers)
	SetupShopRoutes(guarded("/shop", config.FeatureShop), d.Shop)

	SetupUserRoutes(app.Group("/users", auth, limit, license), d.Users)
	SetupNotificationRoutes(app.Group("/notifications", auth, limit, license), d.Notifications)
	SetupLicensingRoutes(app.Group("/licensing", auth, limit), d.Licenses, d.Features)

	SetupIdentityHook(app.Group("/internal", middleware.ServiceTokenAuth(d.Config.IdentityServiceToken)), d.Users)

	return app
}
