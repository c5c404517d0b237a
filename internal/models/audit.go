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
	"time"

	"github.com/shopspring/decimal"
)

// AuditReport is one pass of the ledger auditor over all accounts
type AuditReport struct {
	AccountCount     int             `json:"account_count"`
	Total            decimal.Decimal `json:"total"`
	NegativeAccounts []int64         `json:"negative_accounts,omitempty"`
	CheckedAt        time.Time       `json:"checked_at"`
}

// Healthy reports whether no account was found below zero
func (r AuditReport) Healthy() bool {
	return len(r.NegativeAccounts) == 0
}
