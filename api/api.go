/*
Copyright 2024 Locafin Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/locafin/locafin"
	"github.com/locafin/locafin/api/middleware"
	"github.com/locafin/locafin/config"
	"github.com/locafin/locafin/internal/metrics"
)

type Api struct {
	locafin *locafin.Locafin
	router  *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/accounts", a.CreateAccount)
	router.GET("/accounts", a.GetAllAccounts)
	router.GET("/accounts/:kind/:id", a.GetAccount)
	router.GET("/accounts/:kind/:id/positions", a.GetPositions)
	router.GET("/accounts/:kind/:id/movements", a.GetMovements)
	router.GET("/accounts/:kind/:id/verify", a.VerifyAccount)

	router.POST("/movements", a.RecordMovement)
	router.GET("/movements/:id", a.GetMovement)
	router.PUT("/movements/:id", a.AmendMovement)
	router.DELETE("/movements/:id", a.RetractMovement)

	router.POST("/positions/recalculate", a.Recalculate)

	router.POST("/titles", a.CreateTitle)
	router.GET("/titles", a.GetOpenTitles)
	router.GET("/titles/:id", a.GetTitle)
	router.POST("/titles/:id/payments", a.PayTitle)

	router.POST("/payables", a.CreatePayable)
	router.GET("/payables", a.GetOpenPayables)
	router.GET("/payables/:id", a.GetPayable)
	router.POST("/payables/:id/payments", a.PayPayable)

	router.POST("/remittances", a.GenerateRemittance)
	router.POST("/returns", a.ImportReturn)
	router.POST("/statements/:kind/:id", a.ImportStatement)
	router.PUT("/reconciliations/:id", a.UpdateReconciliation)
	return a.router
}

// NewAPI builds the gin engine with tracing, metrics, rate limiting and, in
// secure mode, secret key authentication. /health and /metrics stay public.
func NewAPI(l *locafin.Locafin, conf *config.Configuration) *Api {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(conf.ProjectName))
	r.Use(metrics.Middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware(conf))
	}

	return &Api{locafin: l, router: r}
}
