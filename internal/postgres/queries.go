package postgres

const (
	queryCreateAccountsTable = `
	CREATE TABLE IF NOT EXISTS accounts (
		id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		name TEXT NOT NULL,
		balance NUMERIC NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

	queryDropAccountsTable = `DROP TABLE IF EXISTS accounts`

	queryInsertAccount = `
		INSERT INTO accounts (name, balance) VALUES ($1, $2::numeric)
		RETURNING id, name, balance::text`

	queryGetAccountById = `
		SELECT id, name, balance::text
		FROM accounts
		WHERE id = $1`

	queryGetAllAccounts = `
		SELECT id, name, balance::text
		FROM accounts
		ORDER BY id`

	// NUMERIC equality is by value, so 100.10 matches 100.1.
	queryConditionalUpdateBalance = `
		UPDATE accounts
		SET balance = $1::numeric, updated_at = now()
		WHERE id = $2 AND balance = $3::numeric`
)
