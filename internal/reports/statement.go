package reports

import (
	"github.com/shopspring/decimal"

	"github.com/quillbooks/quillbooks/internal/fiscal"
	"github.com/quillbooks/quillbooks/internal/ledger"
)

// StatementRow is one line of a tree-shaped, period-bucketed statement.
type StatementRow struct {
	Account string
	Indent  int
	IsGroup bool
	Values  map[string]decimal.Decimal
	Total   decimal.Decimal
	Bold    bool
	// Negative marks a derived row whose total is below zero; renderers
	// color on it.
	Negative bool
}

// StatementSection groups the rows of one root type.
type StatementSection struct {
	Label  string
	Rows   []StatementRow
	Totals map[string]decimal.Decimal
}

// Statement is a period-bucketed hierarchical report.
type Statement struct {
	Columns  []fiscal.Column
	Sections []StatementSection
	// Net is the derived bottom row: net profit for P&L, net cash
	// movement for the cash flow statement. Not a persisted account.
	Net StatementRow
}

// flattenSection renders the pruned subtrees of one root type into indented
// rows plus per-period section totals.
func flattenSection(label string, roots []*TreeNode, keys []string) StatementSection {
	section := StatementSection{Label: label, Totals: make(map[string]decimal.Decimal)}
	for _, root := range roots {
		flattenNode(root, 0, &section.Rows)
		for _, key := range keys {
			if v, ok := root.Values[key]; ok {
				section.Totals[key] = section.Totals[key].Add(v)
			}
		}
	}
	return section
}

func flattenNode(n *TreeNode, indent int, out *[]StatementRow) {
	*out = append(*out, StatementRow{
		Account: n.Name,
		Indent:  indent,
		IsGroup: len(n.Children) > 0,
		Values:  n.Values,
		Total:   n.Total(),
	})
	for _, child := range n.Children {
		flattenNode(child, indent+1, out)
	}
}

// netRow derives the bold bottom row as income minus expense per period.
func netRow(label string, keys []string, income, expense map[string]decimal.Decimal) StatementRow {
	row := StatementRow{Account: label, Bold: true, Values: make(map[string]decimal.Decimal)}
	for _, key := range keys {
		v := income[key].Sub(expense[key])
		row.Values[key] = v
		row.Total = row.Total.Add(v)
	}
	row.Negative = row.Total.IsNegative()
	return row
}

func sectionFor(roots []*TreeNode, rt ledger.RootType) []*TreeNode {
	var out []*TreeNode
	for _, r := range roots {
		if r.EffectiveRoot == rt {
			out = append(out, r)
		}
	}
	return out
}

func columnKeys(cols []fiscal.Column) []string {
	keys := make([]string, len(cols))
	for i, c := range cols {
		keys[i] = c.Key
	}
	return keys
}
