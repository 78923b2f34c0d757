// Package wallet holds the immutable party registry: the configured mapping
// between logical party identifiers and their ledger addresses and signing
// seeds. The registry is built once at startup and injected; it is never
// mutated afterwards.
package wallet

import (
	"fmt"

	"taxflow/internal/domain"
)

// SystemParties is the fixed set of wallets the system tracks, in display
// order. The first three are the pools and the government wallet; the rest
// are department wallets.
func SystemParties() []domain.Party {
	return []domain.Party{
		domain.PartyTaxPool,
		domain.PartyExitPool,
		domain.PartyGovernment,
		"dept_transport",
		"dept_labor",
		"dept_education",
		"penn_dept_transport",
		"penn_dept_labor",
		"penn_dept_education",
		"pitt_dept_transport",
		"pitt_dept_labor",
		"pitt_dept_education",
		"squirrel_hill_dept_transport",
	}
}

// Credential pairs a party with its ledger identity. Seed may be empty for
// read-only deployments; submission then fails for that party.
type Credential struct {
	Party   domain.Party
	Address string
	Seed    string
}

// Registry is the immutable party/address mapping.
type Registry struct {
	order   []domain.Party
	byParty map[domain.Party]Credential
	byAddr  map[string]domain.Party
}

// NewRegistry validates and indexes the provided credentials. Every party
// needs a non-empty address, and both the party and address mappings must be
// injective.
func NewRegistry(creds []Credential) (*Registry, error) {
	r := &Registry{
		order:   make([]domain.Party, 0, len(creds)),
		byParty: make(map[domain.Party]Credential, len(creds)),
		byAddr:  make(map[string]domain.Party, len(creds)),
	}

	for _, cred := range creds {
		if cred.Party == "" {
			return nil, fmt.Errorf("credential with empty party id")
		}
		if cred.Address == "" {
			return nil, fmt.Errorf("party %s: missing ledger address", cred.Party)
		}
		if _, dup := r.byParty[cred.Party]; dup {
			return nil, fmt.Errorf("party %s configured twice", cred.Party)
		}
		if existing, dup := r.byAddr[cred.Address]; dup {
			return nil, fmt.Errorf("address %s shared by %s and %s", cred.Address, existing, cred.Party)
		}
		r.order = append(r.order, cred.Party)
		r.byParty[cred.Party] = cred
		r.byAddr[cred.Address] = cred.Party
	}

	if len(r.order) == 0 {
		return nil, fmt.Errorf("no wallets configured")
	}
	return r, nil
}

// Parties returns the registered parties in configuration order.
func (r *Registry) Parties() []domain.Party {
	out := make([]domain.Party, len(r.order))
	copy(out, r.order)
	return out
}

// Has reports whether the party is registered.
func (r *Registry) Has(party domain.Party) bool {
	_, ok := r.byParty[party]
	return ok
}

// ResolveParty maps a ledger address back to its party.
func (r *Registry) ResolveParty(address string) (domain.Party, bool) {
	party, ok := r.byAddr[address]
	return party, ok
}

// AddressOf returns the ledger address of a party.
func (r *Registry) AddressOf(party domain.Party) (string, bool) {
	cred, ok := r.byParty[party]
	return cred.Address, ok
}

// SeedOf returns the signing seed of a party, if configured.
func (r *Registry) SeedOf(party domain.Party) (string, bool) {
	cred, ok := r.byParty[party]
	if !ok || cred.Seed == "" {
		return "", false
	}
	return cred.Seed, true
}
