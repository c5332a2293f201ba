package verify

import "github.com/ppiankov/claimgate/internal/textutil"

// relevantTerms returns the statement's key terms shared with the task.
// An empty result means the claim is not directly relevant.
func relevantTerms(statement string, taskTerms []string) []string {
	return textutil.SharedTerms(taskTerms, textutil.KeyTerms(statement))
}
