/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import "fmt"

// ErrorKind classifies a failed Result. It never appears on the wire.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindPersistence
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Result is the envelope returned by every ledger operation. A Result is either
// a success (Error=false, optional payload and message) or a failure
// (Error=true with a message); construct it with the helpers below.
type Result struct {
	Account  *Account  `json:"account,omitempty"`
	Accounts []Account `json:"accounts,omitempty"`
	Message  string    `json:"message,omitempty"`
	Error    bool      `json:"error"`

	Kind ErrorKind `json:"-"`
}

// Success returns a result without payload.
func Success(message string) Result {
	return Result{Message: message}
}

// SuccessAccount returns a single-account result.
func SuccessAccount(account Account, message string) Result {
	return Result{Account: &account, Message: message}
}

// SuccessAccounts returns a list result. The slice is copied.
func SuccessAccounts(accounts []Account, message string) Result {
	out := make([]Account, len(accounts))
	copy(out, accounts)
	return Result{Accounts: out, Message: message}
}

// Failure returns an error result of the given kind.
func Failure(kind ErrorKind, message string) Result {
	if kind == KindNone {
		kind = KindPersistence
	}
	return Result{Message: message, Error: true, Kind: kind}
}

// Ok reports whether the result is a success.
func (r Result) Ok() bool {
	return !r.Error
}

// Messages shared by the coordinator and the account service.
const (
	MessageStorageError     = "Error in SQL execution"
	MessageAccountCreated   = "Account was created"
	MessageEmptyLedger      = "No accounts in system yet."
	MessageExchangeDone     = "Exchange completed"
	MessageUpdateConflicted = "Update unsuccessful - please try again"
)

func NotFoundMessage(id int64) string {
	return fmt.Sprintf("No accounts found for id %d", id)
}
