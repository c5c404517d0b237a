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

package database

const (
	// Schema
	queryCreateAccountsTable = `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		balance TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	queryDropAccountsTable = `DROP TABLE IF EXISTS accounts`

	// Account queries
	queryInsertAccount = `
		INSERT INTO accounts (name, balance) VALUES (?, ?)
		RETURNING id, name, balance`

	queryGetAccountById = `
		SELECT id, name, balance
		FROM accounts
		WHERE id = ?`

	queryGetAllAccounts = `
		SELECT id, name, balance
		FROM accounts
		ORDER BY id`

	// Balances are stored in canonical decimal form, so the text comparison
	// below is an exact value comparison.
	queryConditionalUpdateBalance = `
		UPDATE accounts
		SET balance = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND balance = ?`
)
