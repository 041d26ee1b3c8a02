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

package cnab

import (
	"errors"
	"fmt"
)

// ErrEmptyBatch is returned when a remittance is requested for no titles.
var ErrEmptyBatch = errors.New("cnab: at least one title is required")

// EncodingError reports a banking field that cannot be represented.
type EncodingError struct {
	Record string
	Field  string
	Err    error
}

func (e *EncodingError) Error() string {
	if e.Record == "" {
		return fmt.Sprintf("cnab: cannot encode %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("cnab: cannot encode %s.%s: %v", e.Record, e.Field, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

func missing(field string) error {
	return &EncodingError{Field: field, Err: errors.New("value is required")}
}
