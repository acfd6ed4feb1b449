package routes

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"podreseller_back_end/internal/handlers/auth"
	"podreseller_back_end/internal/handlers/cart"
	"podreseller_back_end/internal/handlers/payment"
	"podreseller_back_end/internal/handlers/product"
	"podreseller_back_end/internal/handlers/user"
	"podreseller_back_end/internal/metrics"
	"podreseller_back_end/internal/middleware"
)

// Deps is everything the route table needs. Metrics may be nil.
type Deps struct {
	Auth     *middleware.Authorizer
	Tokens   *auth.Handler
	Products *product.Handler
	Carts    *cart.Handler
	Users    *user.Handler
	Payments *payment.Handler
	Metrics  *metrics.Metrics
}

// NewEngine builds a gin engine with the global middleware chain and every
// route registered.
func NewEngine(log *slog.Logger, corsOrigins []string, d Deps) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = 16 << 20

	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(corsOrigins))
	r.Use(middleware.ErrorHandler())

	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	identity := d.Auth.RequireIdentity()
	admin := d.Auth.RequireAdmin()
	seller := d.Auth.RequireSeller()

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "PodReseller Server Working")
	})
	if d.Metrics != nil {
		r.GET("/metrics", d.Metrics.Handler())
	}

	r.POST("/jwt", d.Tokens.Token)

	// Products
	r.GET("/products", d.Products.List)
	r.GET("/products/:key", d.Auth.RequireIdentityFor(product.IsProductID), d.Products.ByKey)
	r.POST("/products", identity, seller, d.Products.Create)
	r.PATCH("/products/:id", d.Products.Patch)
	r.DELETE("/products/:id", identity, d.Products.Delete)
	r.POST("/products/:id/image", identity, seller, d.Products.UploadImage)
	r.GET("/myProducts", identity, seller, d.Products.Mine)
	r.GET("/search", d.Products.Search)

	// Carts
	r.POST("/carts", d.Carts.Add)
	r.GET("/carts", d.Carts.List)
	r.GET("/carts/ws", identity, d.Carts.Stream)
	r.DELETE("/carts/:id", d.Carts.Remove)

	// Users
	r.GET("/users", d.Users.List)
	r.POST("/users", d.Users.Create)
	r.DELETE("/users/:id", identity, admin, d.Users.Delete)
	r.GET("/users/admin/:email", identity, d.Auth.RequireSelf("email"), d.Users.IsAdmin)
	r.PATCH("/users/admin/:id", identity, admin, d.Users.Promote)
	r.GET("/users/seller/:email", identity, d.Auth.RequireSelf("email"), d.Users.IsSeller)

	// Payments
	r.POST("/create-payment-intent", d.Payments.CreateIntent)
	r.POST("/payments", d.Payments.Record)
	r.GET("/payments/:email", identity, d.Auth.RequireSelf("email"), d.Payments.ListByEmail)
	r.POST("/webhooks/stripe", d.Payments.Webhook)
}
