// Package accounts loads sender mailbox identities and tracks how many messages each
// one has delivered during a run.
package accounts

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoSenders is returned when a senders file parses but lists no identities.
var ErrNoSenders = errors.New("accounts: no senders configured")

// Sender is one mailbox identity. It is immutable for the lifetime of a run.
type Sender struct {
	Name       string
	Address    string
	Credential string
}

// From renders the sender as an RFC 5322 display address.
func (s Sender) From() string {
	if strings.TrimSpace(s.Name) == "" {
		return s.Address
	}
	return fmt.Sprintf("%s <%s>", s.Name, s.Address)
}

// senderRecord mirrors one entry of the senders file (name/email/password).
type senderRecord struct {
	Name        string `yaml:"name"`
	Email       string `yaml:"email"`
	Password    string `yaml:"password"`
	PasswordEnv string `yaml:"password_env"`
}

type sendersDocument struct {
	Senders []senderRecord `yaml:"senders"`
}

// Load reads sender identities from a YAML or JSON file.
//
// The file is either a top-level list of {name, email, password} records or a mapping
// with a "senders" list. A record may name an environment variable via password_env
// instead of carrying the credential inline.
func Load(path string) ([]Sender, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("accounts: senders file path is required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("accounts: read senders file: %w", err)
	}
	return Parse(b)
}

// Parse decodes a senders document. See Load for the accepted shapes.
func Parse(b []byte) ([]Sender, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(b, &node); err != nil {
		return nil, fmt.Errorf("accounts: parse senders file: %w", err)
	}

	var records []senderRecord
	if len(node.Content) > 0 {
		root := node.Content[0]
		switch root.Kind {
		case yaml.SequenceNode:
			if err := root.Decode(&records); err != nil {
				return nil, fmt.Errorf("accounts: parse senders list: %w", err)
			}
		case yaml.MappingNode:
			var doc sendersDocument
			if err := root.Decode(&doc); err != nil {
				return nil, fmt.Errorf("accounts: parse senders mapping: %w", err)
			}
			records = doc.Senders
		default:
			return nil, fmt.Errorf("accounts: senders file must be a list or a mapping with a senders key")
		}
	}
	if len(records) == 0 {
		return nil, ErrNoSenders
	}

	out := make([]Sender, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, r := range records {
		addr := strings.TrimSpace(r.Email)
		if addr == "" {
			return nil, fmt.Errorf("accounts: sender %d: email is required", i+1)
		}
		key := strings.ToLower(addr)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("accounts: sender %d: duplicate email %q", i+1, addr)
		}
		seen[key] = struct{}{}

		cred := r.Password
		if env := strings.TrimSpace(r.PasswordEnv); env != "" {
			cred = os.Getenv(env)
			if strings.TrimSpace(cred) == "" {
				return nil, fmt.Errorf("accounts: sender %q: %s is not set", addr, env)
			}
		}
		if strings.TrimSpace(cred) == "" {
			return nil, fmt.Errorf("accounts: sender %q: password is required", addr)
		}

		out = append(out, Sender{
			Name:       strings.TrimSpace(r.Name),
			Address:    addr,
			Credential: cred,
		})
	}
	return out, nil
}

// Account pairs a sender with its per-run delivery counter.
type Account struct {
	Sender Sender
	sent   int
}

// Sent returns the number of successful deliveries recorded this run.
func (a *Account) Sent() int { return a.sent }

// RecordSuccess counts one successful delivery.
func (a *Account) RecordSuccess() { a.sent++ }

// Pool owns the accounts for a single run. It is not safe for concurrent use; runs
// are sequential.
type Pool struct {
	accounts []*Account
}

// NewPool wraps senders with zeroed counters, preserving file order.
func NewPool(senders []Sender) *Pool {
	p := &Pool{accounts: make([]*Account, 0, len(senders))}
	for _, s := range senders {
		p.accounts = append(p.accounts, &Account{Sender: s})
	}
	return p
}

// Len returns the number of accounts in the pool.
func (p *Pool) Len() int { return len(p.accounts) }

// Eligible returns the accounts that have delivered fewer than limit messages.
func (p *Pool) Eligible(limit int) []*Account {
	var out []*Account
	for _, a := range p.accounts {
		if a.sent < limit {
			out = append(out, a)
		}
	}
	return out
}

// Counts reports successful deliveries per sender address.
func (p *Pool) Counts() map[string]int {
	out := make(map[string]int, len(p.accounts))
	for _, a := range p.accounts {
		out[a.Sender.Address] = a.sent
	}
	return out
}

// Select picks one account uniformly at random. It returns nil when eligible is empty.
func Select(rng *rand.Rand, eligible []*Account) *Account {
	if len(eligible) == 0 {
		return nil
	}
	return eligible[rng.IntN(len(eligible))]
}
