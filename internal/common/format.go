package common

import (
	"fmt"
	"strings"

	"ledger-exchange-go/internal/models"
	"ledger-exchange-go/internal/store"
)

const (
	// Default separator widths
	DefaultWidth = 80
	WideWidth    = 100
)

// PrintSeparator prints a separator line with the specified character and width
func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// FormatAccountLine renders one account row of the ledger report.
func FormatAccountLine(account models.Account, isLast bool) string {
	return fmt.Sprintf("%s#%-6d %-24s %20s", BoxPrefix(isLast), account.Id, account.Name, account.Balance.StringFixed(2))
}

// PrintLedgerReport prints every account and the ledger total.
func PrintLedgerReport(accounts []models.Account, width int) {
	PrintHeader(fmt.Sprintf("LEDGER: %d account(s)", len(accounts)), width)
	for i, account := range accounts {
		fmt.Println(FormatAccountLine(account, i == len(accounts)-1))
	}
	PrintFooter("Total: "+store.TotalBalance(accounts).String(), width)
}
