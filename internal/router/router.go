package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpy/paths"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/raksha360/hospital-portal/api"
	"github.com/raksha360/hospital-portal/internal/handler"
	"github.com/raksha360/hospital-portal/internal/metrics"
	"github.com/raksha360/hospital-portal/internal/middleware"
)

const PathMetrics = "/metrics"

// Deps is everything the stub routes need.
type Deps struct {
	Auth     *handler.AuthHandler
	Hospital *handler.HospitalHandler
	Tickets  *handler.TicketHandler
	Records  *handler.RecordsHandler
	Tokens   middleware.TokenVerifier
	Metrics  *metrics.Metrics
	Ready    gin.HandlerFunc
}

func New(d Deps) http.Handler {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET(PathMetrics, gin.WrapH(d.Metrics.Handler()))
	}
	ready := d.Ready
	if ready == nil {
		ready = handler.Ready(nil)
	}
	r.GET(paths.PathHealth, handler.Health)
	r.GET(paths.PathReady, ready)
	r.GET(paths.PathSwagger, func(c *gin.Context) { c.Redirect(http.StatusFound, paths.PathSwagger+"/") })
	r.GET(paths.PathSwagger+"/*any", func(c *gin.Context) {
		if strings.TrimPrefix(c.Param("any"), "/") == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if strings.TrimPrefix(c.Param("any"), "/") == "" {
			c.Request.URL.Path = paths.PathSwagger + "/index.html"
			c.Request.RequestURI = paths.PathSwagger + "/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL(paths.PathSwagger+"/openapi.json"))(c)
	})

	r.POST("/auth/hospital/login", d.Auth.Login)
	r.POST("/hospital/register", d.Auth.Register)
	r.GET("/doctors", d.Records.Doctors)

	authed := r.Group("/", middleware.RequireHospital(d.Tokens))
	{
		authed.GET("/hospital/me", d.Hospital.Me)
		authed.GET("/hospital/dashboard", d.Tickets.Dashboard)
		authed.GET("/hospital/requests", d.Tickets.List)
		authed.POST("/hospital/requests", d.Tickets.Create)
		authed.POST("/hospital/admissions", d.Records.CreateAdmission)
		authed.POST("/hospital/billing", d.Records.CreateBilling)
		authed.GET("/hospital/:id", d.Hospital.Get)
		authed.GET("/tickets/:id", d.Tickets.Get)
		authed.PUT("/tickets/:id", d.Tickets.Update)
	}

	return r
}
