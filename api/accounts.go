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

func (a Api) CreateAccount(c *gin.Context) {
	var newAccount model2.CreateAccount
	if err := c.ShouldBindJSON(&newAccount); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := newAccount.ValidateCreateAccount()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.locafin.CreateAccount(c.Request.Context(), newAccount.ToAccount())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetAccount(c *gin.Context) {
	ref, ok := accountRef(c)
	if !ok {
		return
	}
	account, err := a.locafin.GetAccount(c.Request.Context(), ref)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (a Api) GetAllAccounts(c *gin.Context) {
	accounts, err := a.locafin.ListAccounts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

// GetPositions lists daily positions between the from and to query dates.
func (a Api) GetPositions(c *gin.Context) {
	ref, ok := accountRef(c)
	if !ok {
		return
	}
	from, ok := queryDay(c, "from")
	if !ok {
		return
	}
	to, ok := queryDay(c, "to")
	if !ok {
		return
	}
	if from == nil || to == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to are required"})
		return
	}
	positions, err := a.locafin.ListPositions(c.Request.Context(), ref, *from, *to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, positions)
}

func (a Api) GetMovements(c *gin.Context) {
	ref, ok := accountRef(c)
	if !ok {
		return
	}
	from, ok := queryDay(c, "from")
	if !ok {
		return
	}
	to, ok := queryDay(c, "to")
	if !ok {
		return
	}
	movements, err := a.locafin.ListMovements(c.Request.Context(), ref, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, movements)
}

func (a Api) VerifyAccount(c *gin.Context) {
	ref, ok := accountRef(c)
	if !ok {
		return
	}
	result, err := a.locafin.VerifyAccountBalance(c.Request.Context(), ref)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
