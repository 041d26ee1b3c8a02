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
	"github.com/locafin/locafin/cnab"
	"github.com/locafin/locafin/model"
)

func (a Api) GenerateRemittance(c *gin.Context) {
	var req model2.GenerateRemittance
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidateGenerateRemittance(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	remittance, err := a.locafin.GenerateRemittance(c.Request.Context(), req.Account, req.TitleIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, remittance)
}

// readBankFile decodes the raw request body of an uploaded bank file.
func readBankFile(c *gin.Context) (string, bool) {
	content, err := cnab.ReadFile(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return content, true
}

// ImportReturn posts the paid titles of a return file sent as the raw body.
func (a Api) ImportReturn(c *gin.Context) {
	content, ok := readBankFile(c)
	if !ok {
		return
	}
	summary, err := a.locafin.ImportReturnFile(c.Request.Context(), content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ImportStatement reconciles a bank statement sent as the raw body.
func (a Api) ImportStatement(c *gin.Context) {
	ref, ok := accountRef(c)
	if !ok {
		return
	}
	content, ok := readBankFile(c)
	if !ok {
		return
	}
	summary, err := a.locafin.ImportBankStatement(c.Request.Context(), ref, content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (a Api) UpdateReconciliation(c *gin.Context) {
	var req model2.UpdateReconciliation
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidateUpdateReconciliation(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	rec, err := a.locafin.SetReconciliationStatus(c.Request.Context(), c.Param("id"), model.ReconciliationStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
