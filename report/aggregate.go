// Package report rolls approved and pending timesheets or expenses up by
// client and employee, and writes those roll-ups as CSV or XLSX.
package report

import (
	"fmt"
	"sort"

	"timekeeper/workflow"

	"github.com/shopspring/decimal"
)

const UnassignedName = "Unassigned"

// Record is anything with an owner, a status and an amount: timesheet
// hours or expense money.
type Record struct {
	EmployeeID uint
	Status     workflow.Status
	Amount     decimal.Decimal
}

type EmployeeRef struct {
	Name     string
	ClientID *uint
}

// Directory resolves employees to names and clients.
type Directory struct {
	Employees map[uint]EmployeeRef
	Clients   map[uint]string
}

type EmployeeSubtotal struct {
	EmployeeID    uint            `json:"employee_id"`
	Name          string          `json:"name"`
	PendingCount  int             `json:"pending_count"`
	ApprovedCount int             `json:"approved_count"`
	PendingTotal  decimal.Decimal `json:"pending_total"`
	ApprovedTotal decimal.Decimal `json:"approved_total"`
	Total         decimal.Decimal `json:"total"`
}

// ClientGroup is one client's employees. ClientID is nil for the
// Unassigned group.
type ClientGroup struct {
	ClientID       *uint              `json:"client_id"`
	Name           string             `json:"name"`
	Employees      []EmployeeSubtotal `json:"employees"`
	TotalPending   int                `json:"total_pending"`
	TotalApproved  int                `json:"total_approved"`
	PendingAmount  decimal.Decimal    `json:"pending_amount"`
	ApprovedAmount decimal.Decimal    `json:"approved_amount"`
	Total          decimal.Decimal    `json:"total"`
}

func (g ClientGroup) Unassigned() bool {
	return g.ClientID == nil
}

// AggregateByClient groups submitted and approved records by client, then
// by employee. Drafts and rejected records are ignored. Clients sort by
// name with Unassigned last; employees sort by name. Ties fall back to ID
// so equal inputs always produce equal output.
func AggregateByClient(records []Record, dir Directory) []ClientGroup {
	type groupKey struct {
		assigned bool
		id       uint
	}

	groups := make(map[groupKey]*ClientGroup)
	subtotals := make(map[groupKey]map[uint]*EmployeeSubtotal)

	for _, rec := range records {
		if rec.Status != workflow.StatusSubmitted && rec.Status != workflow.StatusApproved {
			continue
		}

		ref, known := dir.Employees[rec.EmployeeID]
		if !known || ref.Name == "" {
			ref.Name = fmt.Sprintf("Employee #%d", rec.EmployeeID)
		}

		key := groupKey{}
		if ref.ClientID != nil {
			if _, ok := dir.Clients[*ref.ClientID]; ok {
				key = groupKey{assigned: true, id: *ref.ClientID}
			}
		}

		g, ok := groups[key]
		if !ok {
			g = newGroup(key.assigned, key.id, dir)
			groups[key] = g
			subtotals[key] = make(map[uint]*EmployeeSubtotal)
		}
		sub, ok := subtotals[key][rec.EmployeeID]
		if !ok {
			sub = &EmployeeSubtotal{
				EmployeeID:    rec.EmployeeID,
				Name:          ref.Name,
				PendingTotal:  decimal.Zero,
				ApprovedTotal: decimal.Zero,
				Total:         decimal.Zero,
			}
			subtotals[key][rec.EmployeeID] = sub
		}

		if rec.Status == workflow.StatusApproved {
			sub.ApprovedCount++
			sub.ApprovedTotal = sub.ApprovedTotal.Add(rec.Amount)
			g.TotalApproved++
			g.ApprovedAmount = g.ApprovedAmount.Add(rec.Amount)
		} else {
			sub.PendingCount++
			sub.PendingTotal = sub.PendingTotal.Add(rec.Amount)
			g.TotalPending++
			g.PendingAmount = g.PendingAmount.Add(rec.Amount)
		}
		sub.Total = sub.Total.Add(rec.Amount)
		g.Total = g.Total.Add(rec.Amount)
	}

	out := make([]ClientGroup, 0, len(groups))
	for key, g := range groups {
		for _, sub := range subtotals[key] {
			g.Employees = append(g.Employees, *sub)
		}
		sort.Slice(g.Employees, func(i, j int) bool {
			a, b := g.Employees[i], g.Employees[j]
			if a.Name != b.Name {
				return a.Name < b.Name
			}
			return a.EmployeeID < b.EmployeeID
		})
		out = append(out, *g)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Unassigned() != b.Unassigned() {
			return b.Unassigned()
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.ClientID == nil || b.ClientID == nil {
			return false
		}
		return *a.ClientID < *b.ClientID
	})
	return out
}

func newGroup(assigned bool, id uint, dir Directory) *ClientGroup {
	g := &ClientGroup{
		Name:           UnassignedName,
		PendingAmount:  decimal.Zero,
		ApprovedAmount: decimal.Zero,
		Total:          decimal.Zero,
	}
	if assigned {
		clientID := id
		g.ClientID = &clientID
		g.Name = dir.Clients[id]
	}
	return g
}
