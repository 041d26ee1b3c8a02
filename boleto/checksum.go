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

package boleto

import "strconv"

// Mod10 computes the digit-line field check digit. Digits are weighted 2,1,2,1...
// from the right, each product contributes the sum of its own digits, and the
// result is the complement of the total to the next multiple of ten.
// Non-digit characters are ignored.
func Mod10(number string) string {
	sum := 0
	weight := 2
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			continue
		}
		product := int(c-'0') * weight
		sum += product/10 + product%10
		if weight == 2 {
			weight = 1
		} else {
			weight = 2
		}
	}
	return strconv.Itoa((10 - sum%10) % 10)
}

// Mod11 computes the barcode general check digit. Digits are weighted with the
// cycle 2..9 from the right; the digit is 11 minus the remainder of the sum by 11,
// and the results 0, 10 and 11 are all mapped to 1.
func Mod11(number string) string {
	sum := 0
	weight := 2
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			continue
		}
		sum += int(c-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}
	dv := 11 - sum%11
	if dv == 0 || dv == 10 || dv == 11 {
		return "1"
	}
	return strconv.Itoa(dv)
}
