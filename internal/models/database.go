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

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Account is a snapshot of one ledger row. A new balance is a new Account value.
type Account struct {
	Id      int64           `db:"id" json:"id"`
	Name    string          `db:"name" json:"name"`
	Balance decimal.Decimal `db:"balance" json:"balance"`
}

// accountWire keeps the balance a JSON number ({"balance":100.1}) rather than
// the quoted string decimal.Decimal produces by default.
type accountWire struct {
	Id      int64       `json:"id"`
	Name    string      `json:"name"`
	Balance json.Number `json:"balance"`
}

func (a Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(accountWire{
		Id:      a.Id,
		Name:    a.Name,
		Balance: json.Number(a.Balance.String()),
	})
}

func (a Account) String() string {
	return fmt.Sprintf("{id=%d, name='%s', balance=%s}", a.Id, a.Name, a.Balance.String())
}

// Equal compares all fields, balances by value (100.10 == 100.1).
func (a Account) Equal(other Account) bool {
	return a.Id == other.Id && a.Name == other.Name && a.Balance.Equal(other.Balance)
}

// Precision bounds for every amount and balance the ledger accepts.
const (
	MaxScale         = 18
	MaxIntegerDigits = 20
)

// WithinPrecision reports whether d has at most MaxScale decimal places and
// at most MaxIntegerDigits digits before the point.
func WithinPrecision(d decimal.Decimal) bool {
	if d.Exponent() < -MaxScale {
		return false
	}
	return d.NumDigits()+int(d.Exponent()) <= MaxIntegerDigits
}

// PrecisionMessage describes the bound without echoing the rejected value.
func PrecisionMessage(field string) string {
	return fmt.Sprintf("%s exceeds supported precision: at most %d decimal places and %d integer digits",
		field, MaxScale, MaxIntegerDigits)
}

// TransferRequest moves Amount from one account to another.
type TransferRequest struct {
	FromAccountId int64           `json:"fromAccountId"`
	ToAccountId   int64           `json:"toAccountId"`
	Amount        decimal.Decimal `json:"amount"`
}

func (r TransferRequest) String() string {
	return fmt.Sprintf("{from=%d, to=%d, amount=%s}", r.FromAccountId, r.ToAccountId, r.Amount.String())
}
