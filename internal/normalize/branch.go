package normalize

import (
	"strings"

	"invsync/internal/inventory"
)

// BranchStrategy decides which branch a record from a given column belongs to.
type BranchStrategy int

const (
	// BranchFromTab attributes every record of a tab to the tab name.
	BranchFromTab BranchStrategy = iota
	// BranchFromHeader reads the branch from the column header, minus its date
	// token and movement wording, falling back to the tab name.
	BranchFromHeader
)

func (s BranchStrategy) String() string {
	if s == BranchFromHeader {
		return "header"
	}
	return "tab"
}

// Branch resolves the branch name for a column under the strategy.
func (s BranchStrategy) Branch(tabName, header string) string {
	if s == BranchFromHeader {
		if name := headerBranch(header); name != "" {
			return name
		}
	}
	if name := strings.TrimSpace(tabName); name != "" {
		return name
	}
	return inventory.UnknownBranch
}
