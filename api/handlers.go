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
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/locafin/locafin/internal/apierror"
	"github.com/locafin/locafin/model"
)

var errAccountKind = errors.New("account kind must be cash or bank")

func respondError(c *gin.Context, err error) {
	c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
}

// accountRef reads the :kind/:id path parameters.
func accountRef(c *gin.Context) (model.AccountRef, bool) {
	ref := model.AccountRef{Kind: model.AccountKind(c.Param("kind")), ID: c.Param("id")}
	if !ref.Kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": errAccountKind.Error()})
		return ref, false
	}
	return ref, true
}

// queryDay parses an optional YYYY-MM-DD query parameter.
func queryDay(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	d, err := model.ParseDay(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be formatted as YYYY-MM-DD"})
		return nil, false
	}
	return &d, true
}
