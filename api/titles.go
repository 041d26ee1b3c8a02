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

	model2 "github.com/locafin/locafin/api/model"
)

func (a Api) CreateTitle(c *gin.Context) {
	var newTitle model2.CreateTitle
	if err := c.ShouldBindJSON(&newTitle); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := newTitle.ValidateCreateTitle(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.locafin.CreateTitle(c.Request.Context(), newTitle.ToTitle())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetTitle(c *gin.Context) {
	title, err := a.locafin.GetTitle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, title)
}

// GetOpenTitles lists unpaid titles, or looks one up with ?tracking=.
func (a Api) GetOpenTitles(c *gin.Context) {
	if tracking := c.Query("tracking"); tracking != "" {
		title, err := a.locafin.FindTitleByTracking(c.Request.Context(), tracking)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, title)
		return
	}

	titles, err := a.locafin.ListOpenTitles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, titles)
}

func bindPayment(c *gin.Context) (*model2.RecordPayment, bool) {
	var payment model2.RecordPayment
	if err := c.ShouldBindJSON(&payment); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	if err := payment.ValidateRecordPayment(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return nil, false
	}
	return &payment, true
}

func (a Api) PayTitle(c *gin.Context) {
	payment, ok := bindPayment(c)
	if !ok {
		return
	}
	title, movement, err := a.locafin.MarkTitlePaid(c.Request.Context(), c.Param("id"), payment.Amount, payment.ToDetails())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"title": title, "movement": movement})
}

func (a Api) CreatePayable(c *gin.Context) {
	var newPayable model2.CreatePayable
	if err := c.ShouldBindJSON(&newPayable); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := newPayable.ValidateCreatePayable(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.locafin.CreatePayable(c.Request.Context(), newPayable.ToPayable())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetPayable(c *gin.Context) {
	payable, err := a.locafin.GetPayable(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payable)
}

func (a Api) GetOpenPayables(c *gin.Context) {
	payables, err := a.locafin.ListOpenPayables(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payables)
}

func (a Api) PayPayable(c *gin.Context) {
	payment, ok := bindPayment(c)
	if !ok {
		return
	}
	payable, movement, err := a.locafin.PayPayable(c.Request.Context(), c.Param("id"), payment.Amount, payment.ToDetails())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payable": payable, "movement": movement})
}
