package ledger

// Requirement is one (item, quantity) pair a workflow line needs. Production
// lines expand into one Requirement per BOM component; shipment lines map
// directly onto their batch item.
type Requirement struct {
	ItemKind ItemKind
	ItemID   int64
	Label    string
	Qty      float64
}

// ItemRef keys requirements and balances by item identity.
type ItemRef struct {
	Kind ItemKind
	ID   int64
}

// Ref returns the identity key of the requirement.
func (r Requirement) Ref() ItemRef {
	return ItemRef{Kind: r.ItemKind, ID: r.ItemID}
}

// Accumulate sums requirements across all lines of one request, keyed by
// item identity. Two lines consuming the same item must have their
// quantities combined before the stock comparison; checking lines
// independently would pass requests that are infeasible as a whole.
// First-appearance order is preserved so shortage reports stay stable.
func Accumulate(reqs []Requirement) []Requirement {
	index := make(map[ItemRef]int, len(reqs))
	out := make([]Requirement, 0, len(reqs))
	for _, r := range reqs {
		key := r.Ref()
		if i, ok := index[key]; ok {
			out[i].Qty += r.Qty
			continue
		}
		index[key] = len(out)
		out = append(out, r)
	}
	return out
}

// qtyTolerance absorbs float64 noise from qty_per_unit multiplication. A
// requirement within it of the balance counts as exactly satisfied, never
// as a shortage. Matches the tolerance the integrity sweep uses.
const qtyTolerance = 1e-6

// Evaluate compares accumulated requirements against available balances and
// returns every shortage found. A requirement equal to the available
// balance passes; only required > available is short. Items missing from
// the balance map are treated as zero stock.
func Evaluate(accumulated []Requirement, balances map[ItemRef]float64) []Shortage {
	var shortages []Shortage
	for _, r := range accumulated {
		available := balances[r.Ref()]
		if r.Qty > available+qtyTolerance {
			shortages = append(shortages, Shortage{
				ItemKind:  r.ItemKind,
				ItemID:    r.ItemID,
				Label:     r.Label,
				Required:  r.Qty,
				Available: available,
				Shortage:  r.Qty - available,
			})
		}
	}
	return shortages
}
