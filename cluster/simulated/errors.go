// Copyright 2022 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package simulated

import "fmt"

// Server error codes.
const (
	codeSyntaxError          = 62
	codeUnknownTable         = 60
	codeTableAlreadyExists   = 57
	codeNotImplemented       = 48
	codeUnknownUser          = 192
	codeUnknownRole          = 511
	codeAccessEntityExists   = 493
	codeAccessDenied         = 497
	codeAuthenticationFailed = 516
)

// Exception is an error returned by the simulated server. Its message
// follows the format of the real server so that clients can match on it.
type Exception struct {
	Code    int
	Message string
}

func (e *Exception) Error() string {
	return fmt.Sprintf("Code: %d. DB::Exception: %s", e.Code, e.Message)
}

func exception(code int, format string, args ...interface{}) *Exception {
	return &Exception{Code: code, Message: fmt.Sprintf(format, args...)}
}

func accessDenied(user, priv string, obj object, grantOption bool) *Exception {
	suffix := ""
	if grantOption {
		suffix = " WITH GRANT OPTION"
	}
	return exception(codeAccessDenied,
		"%s: Not enough privileges. To execute this query it's necessary to have grant %s ON %s%s",
		user, priv, obj, suffix)
}
