// internal/collections/aggregate.go
package collections

import "github.com/shopspring/decimal"

// Group partitions installments by enrollment. Groups keep the order in which each
// debtor first appears, and members keep input order.
func Group(obligations []Obligation) []DebtorGroup {
	index := make(map[string]int, len(obligations))
	groups := make([]DebtorGroup, 0, len(obligations))

	for _, o := range obligations {
		key := debtorKey(o)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DebtorGroup{
				DebtorID: key,
				Debtor:   o.Debtor,
				DueDate:  o.DueDate,
				Total:    decimal.Zero,
			})
		}
		groups[i].Members = append(groups[i].Members, o)
		groups[i].Total = groups[i].Total.Add(o.Value)
	}

	return groups
}

func debtorKey(o Obligation) string {
	if o.EnrollmentID != "" {
		return o.EnrollmentID
	}
	return "installment:" + o.ID
}
