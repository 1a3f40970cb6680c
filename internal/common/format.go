package common

import (
	"fmt"
	"strings"

	"propie-escrow-go/internal/models"
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

// PrintSeparatorNewline prints a separator with a newline before it
func PrintSeparatorNewline(char string, width int) {
	fmt.Println("\n" + strings.Repeat(char, width))
}

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	PrintSeparatorNewline("=", width)
	fmt.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	PrintSeparatorNewline("=", width)
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintBoxSeparator prints a box-drawing separator line (for sub-sections)
func PrintBoxSeparator(width int) {
	fmt.Println("├" + strings.Repeat("─", width))
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// BoxDetailPrefix returns the prefix for detail lines under list items
func BoxDetailPrefix(isLast bool) string {
	if isLast {
		return "   "
	}
	return "│  "
}

// PrintAccount prints an escrow account with its summary, conditions,
// milestones and releases
func PrintAccount(account *models.EscrowAccount, summary *models.EscrowSummary) {
	PrintHeader(fmt.Sprintf("ESCROW %s (%s)", account.Id, account.Status), WideWidth)
	fmt.Printf("Transaction: %s   Property: %s\n", account.TransactionId, account.PropertyId)
	fmt.Printf("Balance:     %s %s\n", account.Balance.StringFixed(2), account.Currency)
	if summary != nil {
		fmt.Printf("Deposited:   %s   Released: %s   Pending: %s\n",
			summary.TotalDeposited.StringFixed(2), summary.TotalReleased.StringFixed(2), summary.PendingReleases.StringFixed(2))
		fmt.Printf("Conditions:  %d/%d met   Milestones: %d/%d completed\n",
			summary.ConditionsMet, summary.TotalConditions, summary.MilestonesCompleted, summary.TotalMilestones)
	}

	PrintBoxSeparator(WideWidth - 1)
	fmt.Println("│ Conditions")
	for i, c := range account.Conditions {
		last := i == len(account.Conditions)-1
		fmt.Printf("%s[%s] %s (%s)\n", BoxPrefix(last), c.Status, c.Title, c.Key)
	}

	PrintBoxSeparator(WideWidth - 1)
	fmt.Println("│ Milestones")
	for i, m := range account.Milestones {
		last := i == len(account.Milestones)-1
		fmt.Printf("%s%d. [%s] %s\n", BoxPrefix(last), m.Order, m.Status, m.Title)
	}

	if len(account.Releases) > 0 {
		PrintBoxSeparator(WideWidth - 1)
		fmt.Println("│ Releases")
		for i, r := range account.Releases {
			last := i == len(account.Releases)-1
			fmt.Printf("%s[%s] %s %s to %s\n", BoxPrefix(last), r.Status, r.Amount.StringFixed(2), r.Currency, r.Recipient)
			fmt.Printf("%s%s\n", BoxDetailPrefix(last), r.Reason)
		}
	}
}
