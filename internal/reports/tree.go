// Package reports turns raw ledger entries into hierarchical financial
// statements.
package reports

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/quillbooks/quillbooks/internal/ledger"
)

// ErrAccountCycle indicates the parent-pointer relation is not a forest.
var ErrAccountCycle = errors.New("reports: account parent chain contains a cycle")

// TreeNode is an account plus its aggregated report state. Values maps a
// period key to the node's total including all descendants.
type TreeNode struct {
	ledger.Account

	// EffectiveRoot is the root type used for report placement. It differs
	// from Account.RootType when the node sits in a reclassified
	// Receivable or Payable subtree.
	EffectiveRoot ledger.RootType

	// Contra is Receivable or Payable when the node belongs to such a
	// subtree (directly tagged or inherited), empty otherwise.
	Contra ledger.AccountType

	Children []*TreeNode
	Values   map[string]decimal.Decimal

	parent *TreeNode
	direct map[string]decimal.Decimal
	prune  bool
}

// Total sums the node's aggregated values across all period keys.
func (n *TreeNode) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range n.Values {
		total = total.Add(v)
	}
	return total
}

// AccountTree is the in-memory forest built from flat parent pointers.
type AccountTree struct {
	Nodes map[string]*TreeNode
	Roots []*TreeNode
}

// BuildTree constructs the forest from a flat account list. When reclassify
// is set, Receivable subtrees fold into Income and Payable subtrees into
// Expense, modelling settled debtors/creditors as operating flows for
// cash-basis statements. Parent-pointer cycles fail fast.
func BuildTree(accounts []ledger.Account, reclassify bool) (*AccountTree, error) {
	t := &AccountTree{Nodes: make(map[string]*TreeNode, len(accounts))}
	for _, a := range accounts {
		t.Nodes[a.Name] = &TreeNode{
			Account:       a,
			EffectiveRoot: a.RootType,
			Values:        make(map[string]decimal.Decimal),
			direct:        make(map[string]decimal.Decimal),
			prune:         true,
		}
	}
	for _, n := range t.Nodes {
		if n.ParentAccount == nil {
			t.Roots = append(t.Roots, n)
			continue
		}
		parent, ok := t.Nodes[*n.ParentAccount]
		if !ok {
			// Orphaned parent pointer: treat the node as a root rather
			// than dropping its subtree.
			t.Roots = append(t.Roots, n)
			continue
		}
		n.parent = parent
		parent.Children = append(parent.Children, n)
	}
	if err := t.detectCycles(); err != nil {
		return nil, err
	}
	sort.Slice(t.Roots, func(i, j int) bool { return t.Roots[i].Name < t.Roots[j].Name })
	for _, n := range t.Nodes {
		sort.Slice(n.Children, func(i, j int) bool { return n.Children[i].Name < n.Children[j].Name })
	}
	if reclassify {
		t.reclassify()
	}
	return t, nil
}

func (t *AccountTree) detectCycles() error {
	const (
		unvisited = 0
		inChain   = 1
		done      = 2
	)
	state := make(map[string]int, len(t.Nodes))
	for name, n := range t.Nodes {
		if state[name] != unvisited {
			continue
		}
		var chain []string
		cur := n
		for cur != nil && state[cur.Name] == unvisited {
			state[cur.Name] = inChain
			chain = append(chain, cur.Name)
			cur = cur.parent
		}
		if cur != nil && state[cur.Name] == inChain {
			return fmt.Errorf("%w: %q", ErrAccountCycle, cur.Name)
		}
		for _, c := range chain {
			state[c] = done
		}
	}
	return nil
}

// reclassify walks each tagged Receivable/Payable subtree with an explicit
// worklist, overriding the effective root type and contra tag all the way
// down. Descendants inherit the tag even when not tagged themselves.
func (t *AccountTree) reclassify() {
	var work []*TreeNode
	for _, n := range t.Nodes {
		switch n.AccountType {
		case ledger.AccountTypeReceivable:
			n.EffectiveRoot = ledger.RootTypeIncome
			n.Contra = ledger.AccountTypeReceivable
			work = append(work, n)
		case ledger.AccountTypePayable:
			n.EffectiveRoot = ledger.RootTypeExpense
			n.Contra = ledger.AccountTypePayable
			work = append(work, n)
		}
	}
	for len(work) > 0 {
		n := work[len(work)-1]
		work = work[:len(work)-1]
		for _, child := range n.Children {
			if child.Contra == n.Contra && child.EffectiveRoot == n.EffectiveRoot {
				continue
			}
			child.EffectiveRoot = n.EffectiveRoot
			child.Contra = n.Contra
			work = append(work, child)
		}
	}
}

// ContraType returns the receivable/payable tag of an account after
// reclassification, or empty when the account is not in a contra subtree.
func (t *AccountTree) ContraType(account string) ledger.AccountType {
	if n, ok := t.Nodes[account]; ok {
		return n.Contra
	}
	return ledger.AccountTypeNone
}

// AddValue records a direct period contribution on an account and unprunes
// the node together with its ancestors. Unknown accounts are ignored; the
// caller surfaces them.
func (t *AccountTree) AddValue(account, periodKey string, v decimal.Decimal) {
	n, ok := t.Nodes[account]
	if !ok {
		return
	}
	n.direct[periodKey] = n.direct[periodKey].Add(v)
	for cur := n; cur != nil && cur.prune; cur = cur.parent {
		cur.prune = false
	}
}

// Aggregate rolls every node's direct contributions up its ancestor chain.
// Each leaf walks its parents once; ancestors accumulate in place, so shared
// ancestors are never re-walked.
func (t *AccountTree) Aggregate() {
	for _, n := range t.Nodes {
		for key, v := range n.direct {
			for cur := n; cur != nil; cur = cur.parent {
				cur.Values[key] = cur.Values[key].Add(v)
			}
		}
	}
}

// Pruned returns the surviving subtrees restricted to the requested
// effective root types, with children rebuilt from surviving nodes only.
// Call after Aggregate. Reclassified subtrees stay structurally nested under
// ancestors of another root type, so non-matching nodes are descended
// through and matching subtrees promoted to the result. A root type with no
// surviving accounts is simply absent.
func (t *AccountTree) Pruned(rootTypes ...ledger.RootType) []*TreeNode {
	want := make(map[ledger.RootType]bool, len(rootTypes))
	for _, rt := range rootTypes {
		want[rt] = true
	}
	var out []*TreeNode
	var collect func(n *TreeNode)
	collect = func(n *TreeNode) {
		if want[n.EffectiveRoot] {
			if kept := pruneNode(n, want); kept != nil {
				out = append(out, kept)
			}
			return
		}
		for _, child := range n.Children {
			collect(child)
		}
	}
	for _, root := range t.Roots {
		collect(root)
	}
	return out
}

func pruneNode(n *TreeNode, want map[ledger.RootType]bool) *TreeNode {
	if n.prune || !want[n.EffectiveRoot] {
		return nil
	}
	kept := &TreeNode{
		Account:       n.Account,
		EffectiveRoot: n.EffectiveRoot,
		Contra:        n.Contra,
		Values:        n.Values,
	}
	for _, child := range n.Children {
		if keptChild := pruneNode(child, want); keptChild != nil {
			kept.Children = append(kept.Children, keptChild)
		}
	}
	return kept
}
